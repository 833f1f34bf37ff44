package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Granularity is the generation strategy that produced a record.
type Granularity string

// Available granularities. The set is closed.
const (
	// GranularityComprehensive is open-ended model output.
	GranularityComprehensive Granularity = "comprehensive"

	// GranularityFactoid is deterministic template output.
	GranularityFactoid Granularity = "factoid"

	// GranularityComparison is cross-entity grouping output.
	GranularityComparison Granularity = "comparison"
)

// IsValid returns true if the granularity is recognised.
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityComprehensive, GranularityFactoid, GranularityComparison:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (g Granularity) String() string {
	return string(g)
}

// AllGranularities returns every granularity in display order.
func AllGranularities() []Granularity {
	return []Granularity{
		GranularityComprehensive,
		GranularityFactoid,
		GranularityComparison,
	}
}

// Complexity is the difficulty tier of a question.
type Complexity string

// Available complexity tiers.
const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Decision is the reviewer-facing suggestion derived from judge scores.
type Decision string

// Available decisions.
const (
	DecisionApproved    Decision = "approved"
	DecisionNeedsReview Decision = "needs_review"
)

// ApprovalThreshold is the minimum confidence for DecisionApproved.
const ApprovalThreshold = 0.8

// RecordSource is the producer tag written on every record.
const RecordSource = "mcp_extraction"

// JudgeScores are the quality scores attached by the judge.
// Build them with NewJudgeScores; Confidence is always derived.
type JudgeScores struct {
	Faithfulness      float64  `json:"faithfulness"`
	Relevance         float64  `json:"relevance"`
	Completeness      float64  `json:"completeness"`
	Confidence        float64  `json:"confidence"`
	SuggestedDecision Decision `json:"suggested_decision"`
	Issues            []string `json:"issues"`
}

// NewJudgeScores clamps each axis to [0,1] and derives confidence as the
// minimum of the three and the suggested decision from that confidence.
func NewJudgeScores(faithfulness, relevance, completeness float64, issues []string) *JudgeScores {
	s := &JudgeScores{
		Faithfulness: clampScore(faithfulness),
		Relevance:    clampScore(relevance),
		Completeness: clampScore(completeness),
		Issues:       append([]string{}, issues...),
	}
	s.Confidence = min(s.Faithfulness, s.Relevance, s.Completeness)
	if s.Confidence >= ApprovalThreshold {
		s.SuggestedDecision = DecisionApproved
	} else {
		s.SuggestedDecision = DecisionNeedsReview
	}
	return s
}

func clampScore(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// RecordMetadata carries the non-content attributes of a record.
type RecordMetadata struct {
	Complexity  Complexity     `json:"complexity"`
	HasCitation bool           `json:"has_citation"`
	CreatedAt   time.Time      `json:"created_at"`
	Scores      *JudgeScores   `json:"scores,omitempty"`
	SourceData  map[string]any `json:"source_data,omitempty"`
}

// TrainingRecord is the canonical unit of output: one question/answer pair.
type TrainingRecord struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	SourceRef   string         `json:"source_ref"`
	Domain      string         `json:"domain"`
	Question    string         `json:"question"`
	Answer      string         `json:"answer"`
	Granularity Granularity    `json:"granularity"`
	Metadata    RecordMetadata `json:"metadata"`
}

// IsScored returns true once the judge has attached scores.
func (r TrainingRecord) IsScored() bool {
	return r.Metadata.Scores != nil
}

// RecordParams are the inputs to NewRecord.
type RecordParams struct {
	ID          string
	Question    string
	Answer      string
	SourceRef   string
	Domain      string
	Granularity Granularity

	// Complexity defaults to ComplexitySimple.
	Complexity Complexity

	// SourceData is optional.
	SourceData map[string]any
}

// now is replaced in tests for stable timestamps.
var now = func() time.Time { return time.Now().UTC() }

// NewRecord is the canonical constructor for TrainingRecord.
// It flags whether the answer carries a citation marker, but does not check
// that the marker matches the record's own source ref.
func NewRecord(p RecordParams) (TrainingRecord, error) {
	if strings.TrimSpace(p.Question) == "" {
		return TrainingRecord{}, &ValidationError{RecordID: p.ID, Field: "question"}
	}
	if strings.TrimSpace(p.Answer) == "" {
		return TrainingRecord{}, &ValidationError{RecordID: p.ID, Field: "answer"}
	}
	if !p.Granularity.IsValid() {
		return TrainingRecord{}, &ValidationError{RecordID: p.ID, Field: "granularity"}
	}
	if p.Complexity == "" {
		p.Complexity = ComplexitySimple
	}

	return TrainingRecord{
		ID:          p.ID,
		Source:      RecordSource,
		SourceRef:   p.SourceRef,
		Domain:      p.Domain,
		Question:    p.Question,
		Answer:      p.Answer,
		Granularity: p.Granularity,
		Metadata: RecordMetadata{
			Complexity:  p.Complexity,
			HasCitation: HasCitation(p.Answer),
			CreatedAt:   now(),
			SourceData:  p.SourceData,
		},
	}, nil
}

// citationPattern matches <<SRC:{domain}:{entity_id}>>.
var citationPattern = regexp.MustCompile(`<<SRC:([^:>\s]+):([^>\s]+)>>`)

// CitationMarker renders the citation marker for an entity.
func CitationMarker(domain, entityID string) string {
	return fmt.Sprintf("<<SRC:%s:%s>>", domain, entityID)
}

// HasCitation returns true if text contains a well-formed citation marker.
func HasCitation(text string) bool {
	return citationPattern.MatchString(text)
}

// Citation is a parsed citation marker.
type Citation struct {
	Domain   string
	EntityID string
}

// ParseCitations returns every citation marker in text, in order.
func ParseCitations(text string) []Citation {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	out := make([]Citation, 0, len(matches))
	for _, m := range matches {
		out = append(out, Citation{Domain: m[1], EntityID: m[2]})
	}
	return out
}

// StripTrailingCitation removes a citation marker (and the whitespace before it)
// from the end of text.
func StripTrailingCitation(text string) string {
	trimmed := strings.TrimRight(text, " \t\n")
	loc := citationPattern.FindAllStringIndex(trimmed, -1)
	if len(loc) == 0 {
		return text
	}
	last := loc[len(loc)-1]
	if last[1] != len(trimmed) {
		return text
	}
	return strings.TrimRight(trimmed[:last[0]], " \t\n")
}
