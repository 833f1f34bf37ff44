package domain

import "time"

// DomainSummary counts what happened to one domain during a run.
type DomainSummary struct {
	Domain    string
	Fetched   int
	CacheHits int
	Generated int
	Failed    int

	// Records counts produced records per granularity.
	Records map[Granularity]int

	// FetchError is set when the entity list could not be fetched at all.
	FetchError string

	// WriteError is set when the domain stream could not be written.
	WriteError string

	// FailedEntities lists entity ids that ended in the Failed state.
	FailedEntities []string

	// Sync is set when entity-replace ran for this domain.
	Sync *SyncReport
}

// FullyFetched returns true if the domain's entity list was retrieved.
func (s DomainSummary) FullyFetched() bool {
	return s.FetchError == ""
}

// TotalRecords returns the record count across granularities.
func (s DomainSummary) TotalRecords() int {
	total := 0
	for _, n := range s.Records {
		total += n
	}
	return total
}

// RunSummary is reported at the end of an extraction run.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Domains    []DomainSummary
	Cache      CacheStats

	// Cancelled is set when the run was interrupted.
	Cancelled bool
}

// Succeeded returns true if at least one domain was fully fetched.
func (s RunSummary) Succeeded() bool {
	for _, d := range s.Domains {
		if d.FullyFetched() {
			return true
		}
	}
	return false
}

// TotalRecords returns the record count across all domains.
func (s RunSummary) TotalRecords() int {
	total := 0
	for _, d := range s.Domains {
		total += d.TotalRecords()
	}
	return total
}
