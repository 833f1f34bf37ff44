package domain

import (
	"strings"
	"time"
)

// ResponseStatus is the state of a human response in the review store.
type ResponseStatus string

// Known response states.
const (
	ResponseSubmitted ResponseStatus = "submitted"
	ResponseDraft     ResponseStatus = "draft"
	ResponseDiscarded ResponseStatus = "discarded"
)

// Response field names that indicate a reviewer changed or rejected a record.
const (
	ResponseEditedQuestion = "edited_question"
	ResponseEditedAnswer   = "edited_answer"
	ResponseRejectionNotes = "rejection_notes"
	ResponseReviewDecision = "review_decision"
)

// Response is one reviewer's annotation on a review item.
type Response struct {
	UserID string            `json:"user_id"`
	Status ResponseStatus    `json:"status"`
	Values map[string]string `json:"values,omitempty"`
}

// ReviewItem is a record as held by the review store.
type ReviewItem struct {
	// ID is the review store's own identifier for the item.
	ID        string         `json:"id"`
	Record    TrainingRecord `json:"record"`
	Responses []Response     `json:"responses,omitempty"`
}

// IsAnnotated returns true if any response has been submitted.
func (i ReviewItem) IsAnnotated() bool {
	for _, r := range i.Responses {
		if r.Status == ResponseSubmitted {
			return true
		}
	}
	return false
}

// AnnotationDepth classifies how much human work an item carries.
func (i ReviewItem) AnnotationDepth() AnnotationDepth {
	for _, r := range i.Responses {
		if r.Status != ResponseSubmitted {
			continue
		}
		for _, field := range []string{ResponseEditedQuestion, ResponseEditedAnswer, ResponseRejectionNotes} {
			if strings.TrimSpace(r.Values[field]) != "" {
				return AnnotationHasEdits
			}
		}
	}
	return AnnotationApprovedOnly
}

// AnnotationDepth classifies archived annotations.
type AnnotationDepth string

// Annotation depths.
const (
	AnnotationHasEdits     AnnotationDepth = "has_edits"
	AnnotationApprovedOnly AnnotationDepth = "approved_only"
)

// ArchiveReasonSourceDataChanged is the reason code for entity-replace archival.
const ArchiveReasonSourceDataChanged = "source_data_changed"

// ArchiveRecord is an annotated review item preserved before deletion.
// It is write-once.
type ArchiveRecord struct {
	Item            ReviewItem      `json:"item"`
	ArchivedAt      time.Time       `json:"archived_at"`
	Reason          string          `json:"replaced_reason"`
	AnnotationDepth AnnotationDepth `json:"annotation_depth"`
}

// NewArchiveRecord wraps an item for archival with the given reason.
func NewArchiveRecord(item ReviewItem, reason string, at time.Time) ArchiveRecord {
	return ArchiveRecord{
		Item:            item,
		ArchivedAt:      at.UTC(),
		Reason:          reason,
		AnnotationDepth: item.AnnotationDepth(),
	}
}

// SyncReport is the outcome of one entity-replace pass over a domain.
type SyncReport struct {
	Domain     string
	SourceRefs int
	Archived   int
	Deleted    int
	Pushed     int
	Failures   []SyncFailure
}

// OK returns true if every source ref synchronised cleanly.
func (r SyncReport) OK() bool {
	return len(r.Failures) == 0
}
