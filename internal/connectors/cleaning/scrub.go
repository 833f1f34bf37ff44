package cleaning

import (
	"regexp"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

// RedactedEmail replaces e-mail addresses when redaction is on.
const RedactedEmail = "[email redacted]"

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// Scrubber removes personally identifying data from cleaned fields before
// they reach the fingerprint or a model. A nil Scrubber does nothing.
type Scrubber struct {
	drop   map[string]bool
	emails bool
}

// NewScrubber drops the named fields and, if redactEmails is set, masks
// e-mail addresses in every remaining string value. It returns nil when
// there is nothing to do.
func NewScrubber(dropFields []string, redactEmails bool) *Scrubber {
	if len(dropFields) == 0 && !redactEmails {
		return nil
	}
	drop := make(map[string]bool, len(dropFields))
	for _, f := range dropFields {
		drop[f] = true
	}
	return &Scrubber{drop: drop, emails: redactEmails}
}

// Apply scrubs fields in place and returns them.
func (s *Scrubber) Apply(fields domain.Fields) domain.Fields {
	if s == nil {
		return fields
	}
	for key, v := range fields {
		if s.drop[key] {
			delete(fields, key)
			continue
		}
		if !s.emails {
			continue
		}
		switch val := v.(type) {
		case string:
			fields[key] = RedactEmails(val)
		case []string:
			out := make([]string, len(val))
			for i, item := range val {
				out[i] = RedactEmails(item)
			}
			fields[key] = out
		}
	}
	return fields
}

// RedactEmails masks every e-mail address in s.
func RedactEmails(s string) string {
	return emailPattern.ReplaceAllString(s, RedactedEmail)
}
