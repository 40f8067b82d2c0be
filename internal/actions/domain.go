// Package actions routes UI card actions to the analyzers. Every action is
// identified by a code sent by the frontend when the user clicks a card; the
// dispatcher resolves the code, runs the matching analyzer or mutation, and
// wraps the result in the response envelope the UI renders.
package actions

import (
	"errors"
	"fmt"
)

// Code identifies one UI card action.
type Code string

const (
	CodePricingAnalyze Code = "PRICING_ANALYZE"
	CodePricingApply   Code = "PRICING_APPLY"
	CodeMarketAnalyze  Code = "MARKET_ANALYZE"
	CodeReviewAnalyze  Code = "REVIEW_ANALYZE"
)

var (
	ErrUnknownAction    = errors.New("unknown action code")
	ErrMissingParameter = errors.New("missing parameter")
)

// paramError keeps the user-facing message intact while matching
// ErrMissingParameter under errors.Is.
type paramError struct{ msg string }

func (e *paramError) Error() string        { return e.msg }
func (e *paramError) Is(target error) bool { return target == ErrMissingParameter }

type unknownActionError struct{ code Code }

func (e *unknownActionError) Error() string        { return fmt.Sprintf("Unknown action code: %s", e.code) }
func (e *unknownActionError) Is(target error) bool { return target == ErrUnknownAction }

// Params is the wire-shaped parameter record attached to an action. Which
// fields are required depends on the code; Decode enforces that.
type Params struct {
	ListingID string   `json:"listing_id,omitempty"`
	OwnerID   string   `json:"owner_id,omitempty"`
	NewPrice  *float64 `json:"new_price,omitempty"`
}

// Request is a decoded action. Exactly one variant exists per code; the
// dispatcher switches over them so adding a code is a compile-visible change.
type Request interface {
	actionCode() Code
}

type PricingAnalyzeRequest struct{ ListingID string }

type PricingApplyRequest struct {
	ListingID string
	NewPrice  float64
}

type MarketAnalyzeRequest struct{ OwnerID string }

type ReviewAnalyzeRequest struct{ ListingID string }

func (PricingAnalyzeRequest) actionCode() Code { return CodePricingAnalyze }
func (PricingApplyRequest) actionCode() Code   { return CodePricingApply }
func (MarketAnalyzeRequest) actionCode() Code  { return CodeMarketAnalyze }
func (ReviewAnalyzeRequest) actionCode() Code  { return CodeReviewAnalyze }

// Decode validates params against the code's requirements and returns the
// typed request. Unknown codes and missing parameters come back as errors
// matching ErrUnknownAction / ErrMissingParameter.
func Decode(code Code, p Params) (Request, error) {
	switch code {
	case CodePricingAnalyze:
		if p.ListingID == "" {
			return nil, &paramError{"listing_id is required for pricing analysis"}
		}
		return PricingAnalyzeRequest{ListingID: p.ListingID}, nil
	case CodePricingApply:
		if p.ListingID == "" || p.NewPrice == nil {
			return nil, &paramError{"listing_id and new_price are required to apply price change"}
		}
		return PricingApplyRequest{ListingID: p.ListingID, NewPrice: *p.NewPrice}, nil
	case CodeMarketAnalyze:
		if p.OwnerID == "" {
			return nil, &paramError{"owner_id is required for market analysis"}
		}
		return MarketAnalyzeRequest{OwnerID: p.OwnerID}, nil
	case CodeReviewAnalyze:
		if p.ListingID == "" {
			return nil, &paramError{"listing_id is required for review analysis"}
		}
		return ReviewAnalyzeRequest{ListingID: p.ListingID}, nil
	default:
		return nil, &unknownActionError{code}
	}
}

// ActionInfo describes one catalog entry for the UI.
type ActionInfo struct {
	Code            Code     `json:"code"`
	Agent           string   `json:"agent"`
	Tool            string   `json:"tool"`
	Description     string   `json:"description"`
	RequiredParams  []string `json:"required_params"`
	HasActionButton bool     `json:"has_action_button"`
	CardType        string   `json:"card_type"`
}

const (
	agentPricing = "PricingAgent"
	agentTrends  = "DemandTrendAgent"
	agentReviews = "ReviewAnalysisAgent"
)

var catalog = map[Code]ActionInfo{
	CodePricingAnalyze: {
		Code:            CodePricingAnalyze,
		Agent:           agentPricing,
		Tool:            "analyze_pricing",
		Description:     "Analyze pricing and demand for a listing",
		RequiredParams:  []string{"listing_id"},
		HasActionButton: true,
		CardType:        "pricing",
	},
	CodePricingApply: {
		Code:           CodePricingApply,
		Agent:          agentPricing,
		Tool:           "apply_price_change",
		Description:    "Apply the suggested price change",
		RequiredParams: []string{"listing_id", "new_price"},
		CardType:       "pricing",
	},
	CodeMarketAnalyze: {
		Code:           CodeMarketAnalyze,
		Agent:          agentTrends,
		Tool:           "analyze_market_trends",
		Description:    "Analyze market trends for an owner's portfolio",
		RequiredParams: []string{"owner_id"},
		CardType:       "market",
	},
	CodeReviewAnalyze: {
		Code:           CodeReviewAnalyze,
		Agent:          agentReviews,
		Tool:           "analyze_reviews",
		Description:    "Analyze review sentiment and recurring themes",
		RequiredParams: []string{"listing_id"},
		CardType:       "review",
	},
}

// Catalog returns the action configuration table keyed by code.
func Catalog() map[Code]ActionInfo {
	out := make(map[Code]ActionInfo, len(catalog))
	for code, info := range catalog {
		info.RequiredParams = append([]string(nil), info.RequiredParams...)
		out[code] = info
	}
	return out
}
