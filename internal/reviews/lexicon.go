package reviews

// KeywordMapping binds a trigger keyword to a normalised description.
type KeywordMapping struct {
	Keyword     string
	Description string
}

// Theme names a recurring topic and the keywords that signal it.
type Theme struct {
	Name     string
	Keywords []string
}

// Lexicon is the configuration data driving the review analyzer: keyword
// tables, thresholds, and canned wording. Callers supply it to the
// constructor so behavior is tunable without touching control flow. Order
// matters for themes and keyword mappings: ties in the ranked output keep
// table order.
type Lexicon struct {
	PositiveKeywords []string
	NegativeKeywords []string

	Themes []Theme

	// Scanned against low-rated (issues) and high-rated (praise) comments.
	IssueKeywords  []KeywordMapping
	PraiseKeywords []KeywordMapping

	// Issue description -> recommendation template; %d receives the count.
	RecommendationTemplates map[string]string

	SatisfiedRecommendations    []string
	NeutralRecommendations      []string
	DissatisfiedRecommendations []string
	NoReviewsRecommendations    []string

	// Average-rating cutoffs for the satisfaction levels.
	SatisfiedMinRating float64
	NeutralMinRating   float64

	// Positive-ratio cutoffs for the sentiment labels.
	VeryPositiveRatio   float64
	MostlyPositiveRatio float64
	MixedRatio          float64
}

// DefaultLexicon returns the stock configuration.
func DefaultLexicon() Lexicon {
	return Lexicon{
		PositiveKeywords: []string{
			"excellent", "great", "amazing", "perfect", "love", "wonderful",
			"clean", "comfortable", "quality", "recommend", "spotless", "good",
			"friendly", "helpful", "responsive", "smooth", "easy", "best",
		},
		NegativeKeywords: []string{
			"dirty", "bad", "poor", "terrible", "worst", "disappointing",
			"missing", "broken", "filthy", "uncomfortable", "awful", "slow",
			"rude", "late", "damaged", "problem", "issue", "complaint",
		},
		Themes: []Theme{
			{Name: "Cleanliness", Keywords: []string{"clean", "tidy", "spotless", "dirty", "filthy", "messy", "dust"}},
			{Name: "Comfort", Keywords: []string{"comfortable", "cozy", "uncomfortable", "soft", "bed", "sleep"}},
			{Name: "Quality", Keywords: []string{"quality", "excellent", "good", "poor", "bad", "condition"}},
			{Name: "Communication", Keywords: []string{"responsive", "helpful", "communication", "quick", "slow", "friendly", "rude"}},
			{Name: "Value", Keywords: []string{"worth", "value", "price", "expensive", "cheap", "affordable"}},
			{Name: "Location", Keywords: []string{"location", "convenient", "accessible", "far", "near"}},
			{Name: "Amenities", Keywords: []string{"amenities", "wifi", "parking", "pool", "kitchen", "missing"}},
		},
		IssueKeywords: []KeywordMapping{
			{"dirty", "cleanliness issue"},
			{"filthy", "cleanliness issue"},
			{"messy", "cleanliness issue"},
			{"dust", "dust accumulation"},
			{"uncomfortable", "comfort issue"},
			{"broken", "broken item/facility"},
			{"missing", "missing item/amenity"},
			{"slow", "slow response/service"},
			{"rude", "staff/host attitude"},
			{"expensive", "pricing concern"},
			{"noisy", "noise issue"},
			{"small", "space too small"},
			{"old", "outdated facilities"},
			{"smell", "odor issue"},
			{"bug", "pest issue"},
			{"leak", "water leak issue"},
			{"cold", "temperature issue"},
			{"hot", "temperature issue"},
			{"wifi", "wifi/internet issue"},
			{"parking", "parking issue"},
			{"late", "late check-in/response"},
		},
		PraiseKeywords: []KeywordMapping{
			{"clean", "cleanliness"},
			{"spotless", "excellent cleanliness"},
			{"comfortable", "comfort"},
			{"cozy", "cozy atmosphere"},
			{"friendly", "friendly host"},
			{"helpful", "helpful service"},
			{"responsive", "quick response"},
			{"great", "great experience"},
			{"excellent", "excellent quality"},
			{"perfect", "perfect stay"},
			{"amazing", "amazing experience"},
			{"recommend", "highly recommended"},
			{"convenient", "convenient location"},
			{"spacious", "spacious room"},
			{"quiet", "peaceful environment"},
			{"value", "good value"},
		},
		RecommendationTemplates: map[string]string{
			"cleanliness issue":      "Cleanliness mentioned %dx - Deep clean before each guest, consider professional cleaning service",
			"dust accumulation":      "Dust mentioned %dx - Focus on dusting surfaces, air vents, and hidden areas",
			"comfort issue":          "Comfort mentioned %dx - Upgrade mattress/pillows or add extra bedding options",
			"broken item/facility":   "Broken items mentioned %dx - Inspect and repair/replace damaged items immediately",
			"missing item/amenity":   "Missing items mentioned %dx - Check amenity checklist and restock essentials",
			"slow response/service":  "Slow response mentioned %dx - Set up auto-replies and check messages more frequently",
			"staff/host attitude":    "Attitude mentioned %dx - Focus on friendly, professional communication",
			"pricing concern":        "Pricing mentioned %dx - Review your pricing or add more value/amenities",
			"noise issue":            "Noise mentioned %dx - Provide earplugs or improve sound insulation",
			"temperature issue":      "Temperature mentioned %dx - Check AC/heating system, provide fans or extra blankets",
			"wifi/internet issue":    "WiFi mentioned %dx - Upgrade internet plan or add WiFi extenders",
			"odor issue":             "Odor mentioned %dx - Deep clean carpets/fabrics, use air fresheners",
			"pest issue":             "Pest mentioned %dx - Call pest control immediately",
			"water leak issue":       "Leak mentioned %dx - Fix plumbing issues urgently",
			"space too small":        "Space mentioned %dx - Update listing to set proper expectations about room size",
			"outdated facilities":    "Outdated facilities mentioned %dx - Consider renovations or modernizing decor",
			"parking issue":          "Parking mentioned %dx - Clarify parking situation in listing or provide alternatives",
			"late check-in/response": "Late response mentioned %dx - Use automated check-in or be more punctual",
		},
		SatisfiedRecommendations: []string{
			"Continue maintaining your high standards",
			"Consider raising prices given the positive feedback",
			"Encourage guests to share their positive experiences",
		},
		NeutralRecommendations: []string{
			"Respond to guest feedback and ask for specific improvement suggestions",
			"Small touches like welcome snacks can improve ratings",
		},
		DissatisfiedRecommendations: []string{
			"Reach out to recent guests to understand their concerns",
			"Consider pausing bookings until issues are resolved",
		},
		NoReviewsRecommendations: []string{
			"Encourage your first guests to leave reviews",
			"Offer excellent service to earn positive feedback",
			"Follow up with guests after checkout to request reviews",
		},
		SatisfiedMinRating:  4,
		NeutralMinRating:    3,
		VeryPositiveRatio:   0.7,
		MostlyPositiveRatio: 0.5,
		MixedRatio:          0.3,
	}
}
