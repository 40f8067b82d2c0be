package actions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/insightd/insightd/internal/marketdata"
	"github.com/insightd/insightd/internal/observability"
	"github.com/insightd/insightd/internal/pricing"
	"github.com/insightd/insightd/internal/reviews"
	"github.com/insightd/insightd/internal/trends"
)

// PricingService is the slice of the pricing analyzer the dispatcher needs.
type PricingService interface {
	Analyze(ctx context.Context, listingID string) (*pricing.Report, error)
	ApplyPrice(ctx context.Context, listingID string, newPrice float64) (*pricing.ApplyResult, error)
}

// TrendsService analyzes market trends for an owner.
type TrendsService interface {
	Analyze(ctx context.Context, ownerID string) (*trends.Report, error)
}

// ReviewsService analyzes reviews for a listing.
type ReviewsService interface {
	Analyze(ctx context.Context, listingID string) (*reviews.Report, error)
}

// Response is the envelope every card action returns. Transport always
// succeeds; Success carries the outcome and Error is null unless it failed.
type Response struct {
	Success          bool        `json:"success"`
	ActionCode       Code        `json:"action_code"`
	Agent            string      `json:"agent"`
	Data             interface{} `json:"data"`
	ShowActionButton bool        `json:"show_action_button"`
	Error            *string     `json:"error"`
}

// Dispatcher is the single place where analyzer errors turn into envelopes.
type Dispatcher struct {
	pricing PricingService
	trends  TrendsService
	reviews ReviewsService
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewDispatcher(pricing PricingService, trends TrendsService, reviews ReviewsService, metrics *observability.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{pricing: pricing, trends: trends, reviews: reviews, metrics: metrics, logger: logger}
}

const internalErrorMessage = "unexpected error processing action"

// Dispatch runs the action and always returns an envelope: unknown codes,
// missing parameters, analyzer errors, and panics are folded into it rather
// than returned.
func (d *Dispatcher) Dispatch(ctx context.Context, code Code, params Params) (resp Response) {
	info, known := catalog[code]
	agent := info.Agent

	// Unknown codes come from the wire; keep the metric label bounded.
	metricCode := "unknown"
	if known {
		metricCode = string(code)
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("actions: dispatch panicked",
				slog.String("action_code", string(code)), slog.Any("panic", r))
			resp = failure(code, agent, internalErrorMessage)
		}
		d.metrics.ActionDispatched(metricCode, resp.Success)
	}()

	req, err := Decode(code, params)
	if err != nil {
		return failure(code, agent, err.Error())
	}

	switch req := req.(type) {
	case PricingAnalyzeRequest:
		report, err := d.pricing.Analyze(ctx, req.ListingID)
		if err != nil {
			return d.analyzerFailure(code, agent, err)
		}
		return success(code, agent, report, report.CanTakeAction)
	case PricingApplyRequest:
		result, err := d.pricing.ApplyPrice(ctx, req.ListingID, req.NewPrice)
		if err != nil {
			return d.analyzerFailure(code, agent, err)
		}
		return success(code, agent, result, false)
	case MarketAnalyzeRequest:
		report, err := d.trends.Analyze(ctx, req.OwnerID)
		if err != nil {
			return d.analyzerFailure(code, agent, err)
		}
		return success(code, agent, report, false)
	case ReviewAnalyzeRequest:
		report, err := d.reviews.Analyze(ctx, req.ListingID)
		if err != nil {
			return d.analyzerFailure(code, agent, err)
		}
		return success(code, agent, report, false)
	default:
		// Unreachable while Decode and the variants stay in sync.
		return failure(code, agent, internalErrorMessage)
	}
}

// analyzerFailure maps store/analyzer errors into the envelope: the known
// taxonomy keeps its message, anything else is logged and genericized.
func (d *Dispatcher) analyzerFailure(code Code, agent string, err error) Response {
	switch {
	case errors.Is(err, marketdata.ErrNotFound),
		errors.Is(err, marketdata.ErrUpstream),
		errors.Is(err, marketdata.ErrInvalidPrice):
		return failure(code, agent, err.Error())
	default:
		d.logger.Error("actions: dispatch failed",
			slog.String("action_code", string(code)), slog.Any("error", err))
		return failure(code, agent, internalErrorMessage)
	}
}

func success(code Code, agent string, data interface{}, showButton bool) Response {
	return Response{
		Success:          true,
		ActionCode:       code,
		Agent:            agent,
		Data:             data,
		ShowActionButton: showButton,
	}
}

func failure(code Code, agent, msg string) Response {
	return Response{
		ActionCode: code,
		Agent:      agent,
		Data:       map[string]interface{}{},
		Error:      &msg,
	}
}
