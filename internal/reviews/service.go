// Package reviews builds review-sentiment reports for a listing: rating
// distribution, keyword sentiment, recurring themes, extracted issues and
// praise, and the recommendations derived from them.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/insightd/insightd/internal/marketdata"
	"github.com/insightd/insightd/internal/platform/cache"
)

const (
	maxThemes        = 5
	maxIssues        = 5
	maxIssueExamples = 2
	excerptRunes     = 100
	maxRating        = 5.0
)

// Store is the slice of market data the analyzer needs.
type Store interface {
	GetListing(ctx context.Context, listingID string) (*marketdata.Listing, error)
	GetReviews(ctx context.Context, listingID string) ([]marketdata.Review, error)
	FlagReviews(ctx context.Context, listingID, issue string) (int, error)
}

// Satisfaction summarises the overall rating.
type Satisfaction struct {
	Level         string   `json:"level"`
	Emoji         string   `json:"emoji"`
	AverageRating *float64 `json:"average_rating"`
	MaxRating     float64  `json:"max_rating"`
}

// RatingBucket is one star level of the distribution.
type RatingBucket struct {
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}

// RatingDistribution spreads the reviews across the five star levels.
// Percentages are rounded to whole numbers, so they sum to 100 only up to
// rounding.
type RatingDistribution struct {
	FiveStar  RatingBucket `json:"5_star"`
	FourStar  RatingBucket `json:"4_star"`
	ThreeStar RatingBucket `json:"3_star"`
	TwoStar   RatingBucket `json:"2_star"`
	OneStar   RatingBucket `json:"1_star"`
}

// Sentiment aggregates keyword mentions across all comments.
type Sentiment struct {
	Overall          string `json:"overall"`
	PositiveMentions int    `json:"positive_mentions"`
	NegativeMentions int    `json:"negative_mentions"`
}

// ThemeMention is one recurring theme and its rating bias.
type ThemeMention struct {
	Theme        string `json:"theme"`
	MentionCount int    `json:"mention_count"`
	Sentiment    string `json:"sentiment"`
}

// IssueMention is one normalised issue with up to two comment excerpts.
type IssueMention struct {
	Issue    string   `json:"issue"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

// Report is the full review analysis for one listing.
type Report struct {
	Title               string             `json:"title"`
	OverallSatisfaction Satisfaction       `json:"overall_satisfaction"`
	TotalReviews        int                `json:"total_reviews"`
	RatingDistribution  RatingDistribution `json:"rating_distribution"`
	SentimentAnalysis   Sentiment          `json:"sentiment_analysis"`
	RecurringThemes     []ThemeMention     `json:"recurring_themes"`
	TopIssues           []IssueMention     `json:"top_issues"`
	KeyInsights         []string           `json:"key_insights"`
	Recommendations     []string           `json:"recommendations"`
	Summary             string             `json:"summary"`
}

// Service runs the review analysis.
type Service struct {
	store   Store
	cache   *cache.Reports
	lexicon Lexicon
	logger  *slog.Logger
}

func NewService(store Store, reports *cache.Reports, lexicon Lexicon, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: reports, lexicon: lexicon, logger: logger}
}

// Analyze builds the review report for a listing. A listing with no reviews
// (or whose reviews cannot be fetched) gets the distinct "No Reviews" report;
// an unknown listing id is tolerated and used verbatim as the title.
func (s *Service) Analyze(ctx context.Context, listingID string) (*Report, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		return s.analyze(ctx, listingID)
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return value.(*Report), nil
	}

	key, err := s.cache.BuildKey(ctx, "reports", "reviews", listingID)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := s.cache.FetchJSON(ctx, key, &report, loader); err != nil {
		return nil, err
	}
	return &report, nil
}

// Flag marks reviews mentioning issue and invalidates cached reports when
// anything changed.
func (s *Service) Flag(ctx context.Context, listingID, issue string) (int, error) {
	count, err := s.store.FlagReviews(ctx, listingID, issue)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("reviews: cache bump failed", slog.Any("error", err))
		}
	}
	return count, nil
}

func (s *Service) analyze(ctx context.Context, listingID string) (*Report, error) {
	title := listingID
	if listing, err := s.store.GetListing(ctx, listingID); err == nil {
		title = listing.Title
	} else if !errors.Is(err, marketdata.ErrNotFound) {
		s.logger.Warn("reviews: listing lookup failed",
			slog.String("listing_id", listingID), slog.Any("error", err))
	}

	reviews, err := s.store.GetReviews(ctx, listingID)
	if err != nil {
		s.logger.Warn("reviews: reviews unavailable, reporting none",
			slog.String("listing_id", listingID), slog.Any("error", err))
		reviews = nil
	}
	if len(reviews) == 0 {
		return s.noReviewsReport(title), nil
	}

	lex := s.lexicon
	avg := averageRating(reviews)
	level, emoji := satisfactionLevel(avg, lex)

	positive, negative := countMentions(reviews, lex)
	themes := extractThemes(reviews, lex)
	issues, issueOrder := extractIssues(reviews, lex)
	praiseOrder := extractPraise(reviews, lex)

	insights := buildInsights(level, issueOrder, praiseOrder)
	recs := buildRecommendations(level, issueOrder, issues, lex)

	rounded := round1(avg)
	return &Report{
		Title: fmt.Sprintf("Review Analysis for '%s'", title),
		OverallSatisfaction: Satisfaction{
			Level:         level,
			Emoji:         emoji,
			AverageRating: &rounded,
			MaxRating:     maxRating,
		},
		TotalReviews:       len(reviews),
		RatingDistribution: distribution(reviews),
		SentimentAnalysis: Sentiment{
			Overall:          sentimentLabel(positive, negative, lex),
			PositiveMentions: positive,
			NegativeMentions: negative,
		},
		RecurringThemes: themes,
		TopIssues:       topIssues(issueOrder, issues),
		KeyInsights:     insights,
		Recommendations: recs,
		Summary:         buildSummary(len(reviews), avg, level, issueOrder, praiseOrder, recs),
	}, nil
}

func (s *Service) noReviewsReport(title string) *Report {
	return &Report{
		Title: fmt.Sprintf("Review Analysis for '%s'", title),
		OverallSatisfaction: Satisfaction{
			Level:     "No Reviews",
			Emoji:     "❓",
			MaxRating: maxRating,
		},
		TotalReviews:      0,
		SentimentAnalysis: Sentiment{Overall: "No Data"},
		RecurringThemes:   []ThemeMention{},
		TopIssues:         []IssueMention{},
		KeyInsights:       []string{"No reviews available for analysis"},
		Recommendations:   append([]string(nil), s.lexicon.NoReviewsRecommendations...),
		Summary: fmt.Sprintf("No reviews have been submitted for '%s' yet. "+
			"Focus on delivering great experiences to earn your first reviews.", title),
	}
}

func averageRating(reviews []marketdata.Review) float64 {
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

// satisfactionLevel classifies on the raw average; only the displayed value
// is rounded.
func satisfactionLevel(avg float64, lex Lexicon) (string, string) {
	switch {
	case avg >= lex.SatisfiedMinRating:
		return "Satisfied", "😊"
	case avg >= lex.NeutralMinRating:
		return "Neutral", "😐"
	default:
		return "Dissatisfied", "😞"
	}
}

func distribution(reviews []marketdata.Review) RatingDistribution {
	var counts [6]int
	for _, r := range reviews {
		if r.Rating >= 1 && r.Rating <= 5 {
			counts[r.Rating]++
		}
	}
	total := len(reviews)
	bucket := func(star int) RatingBucket {
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(counts[star]) / float64(total) * 100))
		}
		return RatingBucket{Count: counts[star], Percentage: pct}
	}
	return RatingDistribution{
		FiveStar:  bucket(5),
		FourStar:  bucket(4),
		ThreeStar: bucket(3),
		TwoStar:   bucket(2),
		OneStar:   bucket(1),
	}
}

// countMentions counts each keyword at most once per comment.
func countMentions(reviews []marketdata.Review, lex Lexicon) (positive, negative int) {
	for _, r := range reviews {
		comment := strings.ToLower(r.Comment)
		for _, w := range lex.PositiveKeywords {
			if strings.Contains(comment, w) {
				positive++
			}
		}
		for _, w := range lex.NegativeKeywords {
			if strings.Contains(comment, w) {
				negative++
			}
		}
	}
	return positive, negative
}

func sentimentLabel(positive, negative int, lex Lexicon) string {
	total := positive + negative
	if total == 0 {
		return "Neutral"
	}
	ratio := float64(positive) / float64(total)
	switch {
	case ratio >= lex.VeryPositiveRatio:
		return "Very Positive"
	case ratio >= lex.MostlyPositiveRatio:
		return "Mostly Positive"
	case ratio >= lex.MixedRatio:
		return "Mixed"
	default:
		return "Mostly Negative"
	}
}

// extractThemes counts each theme once per review that mentions any of its
// keywords. The bias follows the majority of high (>=4) vs low (<=2) ratings
// among those reviews. Stable sort keeps table order on equal counts.
func extractThemes(reviews []marketdata.Review, lex Lexicon) []ThemeMention {
	mentions := make([]ThemeMention, 0, len(lex.Themes))
	for _, theme := range lex.Themes {
		count, high, low := 0, 0, 0
		for _, r := range reviews {
			comment := strings.ToLower(r.Comment)
			matched := false
			for _, w := range theme.Keywords {
				if strings.Contains(comment, w) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
			count++
			if r.Rating >= 4 {
				high++
			} else if r.Rating <= 2 {
				low++
			}
		}
		if count == 0 {
			continue
		}
		bias := "mixed"
		if high > low {
			bias = "positive"
		} else if low > high {
			bias = "negative"
		}
		mentions = append(mentions, ThemeMention{Theme: theme.Name, MentionCount: count, Sentiment: bias})
	}
	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].MentionCount > mentions[j].MentionCount
	})
	if len(mentions) > maxThemes {
		mentions = mentions[:maxThemes]
	}
	return mentions
}

type issueStat struct {
	count    int
	examples []string
}

// extractIssues scans low-rated comments (rating <= 3) for issue keywords.
// Every keyword hit counts, so a comment saying both "dirty" and "filthy"
// adds two to the cleanliness count. Returns the stats plus the issue
// descriptions stable-sorted by count descending (first-seen order on ties).
func extractIssues(reviews []marketdata.Review, lex Lexicon) (map[string]*issueStat, []string) {
	stats := make(map[string]*issueStat)
	var order []string
	for _, r := range reviews {
		if r.Rating > 3 {
			continue
		}
		comment := strings.ToLower(r.Comment)
		for _, m := range lex.IssueKeywords {
			if !strings.Contains(comment, m.Keyword) {
				continue
			}
			st := stats[m.Description]
			if st == nil {
				st = &issueStat{}
				stats[m.Description] = st
				order = append(order, m.Description)
			}
			st.count++
			if len(st.examples) < maxIssueExamples {
				st.examples = append(st.examples, excerpt(r.Comment))
			}
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return stats[order[i]].count > stats[order[j]].count
	})
	return stats, order
}

// extractPraise scans high-rated comments (rating >= 4) for praise keywords
// and returns the descriptions stable-sorted by count descending.
func extractPraise(reviews []marketdata.Review, lex Lexicon) []string {
	counts := make(map[string]int)
	var order []string
	for _, r := range reviews {
		if r.Rating < 4 {
			continue
		}
		comment := strings.ToLower(r.Comment)
		for _, m := range lex.PraiseKeywords {
			if strings.Contains(comment, m.Keyword) {
				if _, seen := counts[m.Description]; !seen {
					order = append(order, m.Description)
				}
				counts[m.Description]++
			}
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order
}

func excerpt(comment string) string {
	runes := []rune(comment)
	if len(runes) > excerptRunes {
		return string(runes[:excerptRunes]) + "..."
	}
	return comment
}

func topIssues(order []string, stats map[string]*issueStat) []IssueMention {
	top := make([]IssueMention, 0, maxIssues)
	for _, issue := range headOf(order, maxIssues) {
		st := stats[issue]
		top = append(top, IssueMention{Issue: issue, Count: st.count, Examples: st.examples})
	}
	return top
}

func buildInsights(level string, issues, praise []string) []string {
	var insights []string
	if level == "Satisfied" {
		insights = append(insights, "Customers are highly satisfied with this listing")
		if len(praise) > 0 {
			insights = append(insights, "Most praised aspects: "+strings.Join(headOf(praise, 3), ", "))
		}
		return insights
	}
	if len(issues) > 0 {
		insights = append(insights, "Main issues identified: "+strings.Join(headOf(issues, 3), ", "))
	}
	if len(praise) > 0 {
		insights = append(insights, "Positive aspects to maintain: "+strings.Join(headOf(praise, 2), ", "))
	}
	return insights
}

func buildRecommendations(level string, issueOrder []string, stats map[string]*issueStat, lex Lexicon) []string {
	if level == "Satisfied" {
		return append([]string(nil), lex.SatisfiedRecommendations...)
	}
	var recs []string
	for _, issue := range headOf(issueOrder, maxIssues) {
		tmpl, ok := lex.RecommendationTemplates[issue]
		if !ok {
			continue
		}
		recs = append(recs, fmt.Sprintf(tmpl, stats[issue].count))
	}
	if len(recs) == 0 {
		if level == "Neutral" {
			return append([]string(nil), lex.NeutralRecommendations...)
		}
		return append([]string(nil), lex.DissatisfiedRecommendations...)
	}
	return recs
}

func buildSummary(total int, avg float64, level string, issues, praise, recs []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on %d reviews with an average rating of %.1f/5.0, "+
		"the overall satisfaction is %s. ", total, avg, level)
	if len(issues) > 0 {
		fmt.Fprintf(&sb, "Key issues found: %s. ", strings.Join(headOf(issues, 3), ", "))
	}
	if len(praise) > 0 {
		fmt.Fprintf(&sb, "Guests appreciate: %s. ", strings.Join(headOf(praise, 2), ", "))
	}
	if len(recs) > 0 {
		// The short action phrase before the " - " separator, if any.
		action, _, _ := strings.Cut(recs[0], " - ")
		sb.WriteString("Priority action: " + action)
	}
	return sb.String()
}

func headOf(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
