package services

import (
	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driving"
)

// Ensure Reporter implements the interface.
var _ driving.ReportService = (*Reporter)(nil)

// Reporter summarises record streams and validates their citations.
type Reporter struct {
	// known maps a domain to the entity ids its source lists.
	// Domains absent from the map are not checked.
	known map[string]map[string]bool
}

// NewReporter creates a reporter that checks citations against source refs only.
func NewReporter() *Reporter {
	return &Reporter{known: make(map[string]map[string]bool)}
}

// WithKnownEntities also checks that citations in domainName name one of ids.
func (r *Reporter) WithKnownEntities(domainName string, ids []string) *Reporter {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	r.known[domainName] = set
	return r
}

// Report breaks records down by domain, granularity, complexity and decision.
func (r *Reporter) Report(records []domain.TrainingRecord) domain.RecordReport {
	rep := domain.RecordReport{
		Total:         len(records),
		ByDomain:      make(map[string]int),
		ByGranularity: make(map[domain.Granularity]int),
		ByComplexity:  make(map[domain.Complexity]int),
		ByDecision:    make(map[domain.Decision]int),
	}

	var confidence float64
	for _, rec := range records {
		rep.ByDomain[rec.Domain]++
		rep.ByGranularity[rec.Granularity]++
		rep.ByComplexity[rec.Metadata.Complexity]++
		if rec.Metadata.HasCitation {
			rep.WithCitation++
		}
		if s := rec.Metadata.Scores; s != nil {
			rep.Scored++
			rep.ByDecision[s.SuggestedDecision]++
			confidence += s.Confidence
		}
	}
	if rep.Scored > 0 {
		rep.MeanConfidence = confidence / float64(rep.Scored)
	}
	return rep
}

// ValidateCitations checks that every answer ends with a citation marker
// naming the record's own domain and entity.
func (r *Reporter) ValidateCitations(records []domain.TrainingRecord) domain.CitationReport {
	rep := domain.CitationReport{Total: len(records)}
	for _, rec := range records {
		if reason := r.citationProblem(rec); reason != "" {
			rep.Problems = append(rep.Problems, domain.CitationProblem{RecordID: rec.ID, Reason: reason})
			continue
		}
		rep.Valid++
	}
	return rep
}

func (r *Reporter) citationProblem(rec domain.TrainingRecord) string {
	citations := domain.ParseCitations(rec.Answer)
	if rec.Metadata.HasCitation != (len(citations) > 0) {
		return domain.CitationFlagWrong
	}
	if len(citations) == 0 {
		return domain.CitationMissing
	}

	refDomain, refID, ok := domain.ParseSourceRef(rec.SourceRef)
	if !ok {
		return domain.CitationBadRef
	}

	last := citations[len(citations)-1]
	if domain.StripTrailingCitation(rec.Answer) == rec.Answer {
		return domain.CitationNotTrailer
	}
	if last.Domain != refDomain || last.EntityID != refID {
		return domain.CitationMismatch
	}
	for _, c := range citations {
		known, checked := r.known[c.Domain]
		if checked && !known[c.EntityID] {
			return domain.CitationUnknown
		}
	}
	return ""
}
