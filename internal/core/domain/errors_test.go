package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnknownDomain", ErrUnknownDomain},
		{"ErrUnknownBackend", ErrUnknownBackend},
		{"ErrFetch", ErrFetch},
		{"ErrModelCall", ErrModelCall},
		{"ErrGenerationParse", ErrGenerationParse},
		{"ErrTemplateRejected", ErrTemplateRejected},
		{"ErrJudgeUnavailable", ErrJudgeUnavailable},
		{"ErrCacheCorrupt", ErrCacheCorrupt},
		{"ErrValidation", ErrValidation},
		{"ErrSync", ErrSync},
		{"ErrCacheLocked", ErrCacheLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &FetchError{Domain: DomainNSFAwards, Err: cause}

	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch nsf-awards: connection refused", err.Error())

	withEntity := &FetchError{Domain: DomainNSFAwards, EntityID: "1", Err: cause}
	assert.Equal(t, "fetch nsf-awards/1: connection refused", withEntity.Error())
}

func TestCacheCorruptError_Unwrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := &CacheCorruptError{Location: "/tmp/c.json", Err: cause}

	assert.ErrorIs(t, err, ErrCacheCorrupt)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "/tmp/c.json")
}

func TestSyncFailure_Unwrap(t *testing.T) {
	cause := errors.New("503")
	var err error = SyncFailure{SourceRef: "mcp://a/b/c", Op: SyncOpPush, Err: cause}

	assert.ErrorIs(t, err, ErrSync)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "push mcp://a/b/c: 503", err.Error())
}

func TestValidationError_Is(t *testing.T) {
	var err error = &ValidationError{RecordID: "r", Field: "answer"}
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, errors.Is(err, ErrFetch))
}
