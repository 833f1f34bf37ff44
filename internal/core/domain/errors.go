package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownDomain indicates a domain name with no registered source.
	ErrUnknownDomain = errors.New("unknown domain")

	// ErrUnknownBackend indicates an unrecognised model backend.
	ErrUnknownBackend = errors.New("unknown model backend")

	// Pipeline Errors.

	// ErrFetch indicates the entity source was unreachable or returned
	// a malformed response.
	ErrFetch = errors.New("fetch failed")

	// ErrModelCall indicates a model gateway call failed or timed out.
	ErrModelCall = errors.New("model call failed")

	// ErrGenerationParse indicates a model response had no parseable array.
	// Recovered inside the freeform generator as empty output.
	ErrGenerationParse = errors.New("generation output not parseable")

	// ErrTemplateRejected indicates a rendered template failed the quality guard.
	ErrTemplateRejected = errors.New("template rejected")

	// ErrJudgeUnavailable indicates the judge call failed or its response
	// could not be parsed. Records stay unscored.
	ErrJudgeUnavailable = errors.New("judge unavailable")

	// ErrCacheCorrupt indicates the cache store exists but cannot be parsed.
	ErrCacheCorrupt = errors.New("cache corrupt")

	// ErrValidation indicates a record was built with an empty question or answer.
	ErrValidation = errors.New("record validation failed")

	// ErrSync indicates a delete or push failed for one source ref.
	ErrSync = errors.New("sync failed")

	// ErrCacheLocked indicates another process holds the cache lock.
	ErrCacheLocked = errors.New("cache locked by another process")
)

// FetchError reports a failure to fetch or clean entities.
type FetchError struct {
	Domain   string
	EntityID string // empty when the whole entity list failed
	Err      error
}

func (e *FetchError) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("fetch %s: %v", e.Domain, e.Err)
	}
	return fmt.Sprintf("fetch %s/%s: %v", e.Domain, e.EntityID, e.Err)
}

// Unwrap allows errors.Is(err, ErrFetch) and access to the cause.
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}

// ValidationError reports an empty required record field.
// It signals a generator bug and is never recovered locally.
type ValidationError struct {
	RecordID string
	Field    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %q: %s must not be empty", e.RecordID, e.Field)
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// CacheCorruptError reports an unparseable cache store.
type CacheCorruptError struct {
	Location string
	Err      error
}

func (e *CacheCorruptError) Error() string {
	return fmt.Sprintf("cache at %s is corrupt: %v", e.Location, e.Err)
}

// Unwrap allows errors.Is(err, ErrCacheCorrupt).
func (e *CacheCorruptError) Unwrap() []error {
	return []error{ErrCacheCorrupt, e.Err}
}

// SyncOp names the review-store operation that failed.
type SyncOp string

// Review-store operations.
const (
	SyncOpQuery   SyncOp = "query"
	SyncOpArchive SyncOp = "archive"
	SyncOpDelete  SyncOp = "delete"
	SyncOpPush    SyncOp = "push"
)

// SyncFailure records a failed operation for one source ref.
type SyncFailure struct {
	SourceRef string
	Op        SyncOp
	Err       error
}

func (e SyncFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.SourceRef, e.Err)
}

// Unwrap allows errors.Is(err, ErrSync).
func (e SyncFailure) Unwrap() []error {
	return []error{ErrSync, e.Err}
}
