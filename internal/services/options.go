package services

// Default option values shared by all strategies. These are part of the
// caller contract and must not drift.
const (
	DefaultLimit           = 10
	DefaultMinScore        = 0.1
	DefaultMinCoOccurrence = 2
	DefaultMinConfidence   = 0.1
	DefaultMaxResults      = 20
)

// CoOccurrenceOptions tunes the co-occurrence analyzer.
type CoOccurrenceOptions struct {
	// MinCoOccurrence is the count threshold: candidates are kept only
	// when their co-occurrence count is strictly greater than this value.
	MinCoOccurrence int
	// MinConfidence is the minimum confidence a candidate must reach,
	// within [0,1].
	MinConfidence float64
	// MaxCandidates caps the number of returned candidates.
	MaxCandidates int
}

// DefaultCoOccurrenceOptions returns the documented defaults
func DefaultCoOccurrenceOptions() CoOccurrenceOptions {
	return CoOccurrenceOptions{
		MinCoOccurrence: DefaultMinCoOccurrence,
		MinConfidence:   DefaultMinConfidence,
		MaxCandidates:   DefaultMaxResults,
	}
}

// normalized replaces out-of-range values with the defaults. Zero is a
// valid MinCoOccurrence and MinConfidence; only genuinely invalid values
// are replaced.
func (o CoOccurrenceOptions) normalized() CoOccurrenceOptions {
	if o.MinCoOccurrence < 0 {
		o.MinCoOccurrence = DefaultMinCoOccurrence
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		o.MinConfidence = DefaultMinConfidence
	}
	if o.MaxCandidates < 1 {
		o.MaxCandidates = DefaultMaxResults
	}
	return o
}

// FrequentlyBoughtTogetherOptions tunes the frequently-bought-together
// strategy.
type FrequentlyBoughtTogetherOptions struct {
	MinCoOccurrence int
	MinConfidence   float64
	MaxResults      int
}

// DefaultFrequentlyBoughtTogetherOptions returns the documented defaults
func DefaultFrequentlyBoughtTogetherOptions() FrequentlyBoughtTogetherOptions {
	return FrequentlyBoughtTogetherOptions{
		MinCoOccurrence: DefaultMinCoOccurrence,
		MinConfidence:   DefaultMinConfidence,
		MaxResults:      DefaultMaxResults,
	}
}

func (o FrequentlyBoughtTogetherOptions) normalized() FrequentlyBoughtTogetherOptions {
	if o.MinCoOccurrence < 0 {
		o.MinCoOccurrence = DefaultMinCoOccurrence
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		o.MinConfidence = DefaultMinConfidence
	}
	if o.MaxResults < 1 {
		o.MaxResults = DefaultMaxResults
	}
	return o
}

// PersonalizedOptions tunes the personalized strategy.
type PersonalizedOptions struct {
	Limit int
	// MinScore is the confidence floor applied to the per-seed
	// co-occurrence lookups, within [0,1].
	MinScore          float64
	ExcludeProductIDs []string
}

// DefaultPersonalizedOptions returns the documented defaults
func DefaultPersonalizedOptions() PersonalizedOptions {
	return PersonalizedOptions{
		Limit:    DefaultLimit,
		MinScore: DefaultMinScore,
	}
}

func (o PersonalizedOptions) normalized() PersonalizedOptions {
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}
	if o.MinScore < 0 || o.MinScore > 1 {
		o.MinScore = DefaultMinScore
	}
	return o
}

// CategoryOptions tunes the category-based strategy.
type CategoryOptions struct {
	Limit             int
	ExcludeProductIDs []string
}

// DefaultCategoryOptions returns the documented defaults
func DefaultCategoryOptions() CategoryOptions {
	return CategoryOptions{Limit: DefaultLimit}
}

func (o CategoryOptions) normalized() CategoryOptions {
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}
	return o
}

// CartOptions tunes the cart-based strategy.
type CartOptions struct {
	Limit             int
	ExcludeProductIDs []string
}

// DefaultCartOptions returns the documented defaults
func DefaultCartOptions() CartOptions {
	return CartOptions{Limit: DefaultLimit}
}

func (o CartOptions) normalized() CartOptions {
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}
	return o
}
