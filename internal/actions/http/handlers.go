// Package actionshttp exposes the card actions over REST. Handlers stay
// thin: decode, validate, dispatch, encode. The envelope is always HTTP 200;
// only malformed requests and queue failures use problem responses.
package actionshttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/insightd/insightd/internal/actions"
	"github.com/insightd/insightd/internal/platform/httpx"
)

type dispatcher interface {
	Dispatch(ctx context.Context, code actions.Code, params actions.Params) actions.Response
}

// flagEnqueuer hands review-flag requests to the background worker.
type flagEnqueuer interface {
	EnqueueReviewFlag(ctx context.Context, listingID, issue string) (string, error)
}

// Handler wires the action endpoints.
type Handler struct {
	logger     *slog.Logger
	dispatcher dispatcher
	flagQueue  flagEnqueuer
	validator  *validator.Validate
}

// NewHandler constructs the action HTTP handler. flagQueue may be nil when
// no worker is configured; the flag endpoint then responds 502.
func NewHandler(logger *slog.Logger, d dispatcher, flagQueue flagEnqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	// Report field names the way the wire spells them.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{logger: logger, dispatcher: d, flagQueue: flagQueue, validator: v}
}

type pricingAnalyzeRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
}

type pricingApplyRequest struct {
	ListingID string   `json:"listing_id" validate:"required"`
	NewPrice  *float64 `json:"new_price" validate:"required"`
}

type marketAnalyzeRequest struct {
	OwnerID string `json:"owner_id" validate:"required"`
}

type reviewAnalyzeRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
}

type reviewFlagRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
	Issue     string `json:"issue" validate:"required"`
}

func (h *Handler) analyzePricing(w http.ResponseWriter, r *http.Request) {
	var req pricingAnalyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp := h.dispatcher.Dispatch(r.Context(), actions.CodePricingAnalyze, actions.Params{ListingID: req.ListingID})
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) applyPricing(w http.ResponseWriter, r *http.Request) {
	var req pricingApplyRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp := h.dispatcher.Dispatch(r.Context(), actions.CodePricingApply, actions.Params{ListingID: req.ListingID, NewPrice: req.NewPrice})
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) analyzeMarket(w http.ResponseWriter, r *http.Request) {
	var req marketAnalyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp := h.dispatcher.Dispatch(r.Context(), actions.CodeMarketAnalyze, actions.Params{OwnerID: req.OwnerID})
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) analyzeReviews(w http.ResponseWriter, r *http.Request) {
	var req reviewAnalyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp := h.dispatcher.Dispatch(r.Context(), actions.CodeReviewAnalyze, actions.Params{ListingID: req.ListingID})
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) actionCodes(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, actions.Catalog())
}

func (h *Handler) flagReviews(w http.ResponseWriter, r *http.Request) {
	var req reviewFlagRequest
	if !h.decode(w, r, &req) {
		return
	}
	if h.flagQueue == nil {
		httpx.RespondError(w, fmt.Errorf("%w: no worker queue configured", httpx.ErrUpstream))
		return
	}
	taskID, err := h.flagQueue.EnqueueReviewFlag(r.Context(), req.ListingID, req.Issue)
	if err != nil {
		h.logger.Error("actions: enqueue review flag",
			slog.String("listing_id", req.ListingID), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: queue unavailable", httpx.ErrUpstream))
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued", "task_id": taskID})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	if err := httpx.DecodeJSON(w, r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return false
	}
	return true
}

func validationDetail(err error) string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
