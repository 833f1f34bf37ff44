package domain

// RecordReport breaks a record stream down for the report command.
type RecordReport struct {
	Total         int
	ByDomain      map[string]int
	ByGranularity map[Granularity]int
	ByComplexity  map[Complexity]int
	ByDecision    map[Decision]int
	Scored        int
	WithCitation  int

	// MeanConfidence is averaged over scored records.
	MeanConfidence float64
}

// CitationProblem names one record whose citation is missing or wrong.
type CitationProblem struct {
	RecordID string
	Reason   string
}

// Citation problem reasons.
const (
	CitationMissing    = "missing citation marker"
	CitationMismatch   = "citation does not match source ref"
	CitationBadRef     = "unparseable source ref"
	CitationFlagWrong  = "has_citation flag disagrees with answer"
	CitationNotTrailer = "citation marker is not at the end of the answer"
	CitationUnknown    = "citation references an entity the source does not list"
)

// CitationReport is the outcome of validating citation markers.
type CitationReport struct {
	Total    int
	Valid    int
	Problems []CitationProblem
}

// OK returns true if every record carried a matching citation.
func (r CitationReport) OK() bool {
	return len(r.Problems) == 0
}
