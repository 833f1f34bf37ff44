package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Delta is a GPU system.", "Delta is a GPU system."},
		{"tags", "<p>Delta is <b>fast</b>.</p>", "Delta is fast."},
		{"entities", "AT&amp;T &lt;labs&gt;", "AT&T <labs>"},
		{"whitespace", "<div>\n  one\n\n<br/>two  </div>", "one two"},
		{"script dropped", "<script>alert(1)</script>ok", "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestFilterStrings(t *testing.T) {
	got := FilterStrings([]string{" GPU ", "", "Unknown Feature 12", "GPU", "unknown", "Large Memory"}, "Unknown")

	assert.Equal(t, []string{"GPU", "Large Memory"}, got)
}

func TestCap(t *testing.T) {
	items := []int{1, 2, 3}

	assert.Equal(t, []int{1, 2}, Cap(items, 2))
	assert.Equal(t, items, Cap(items, 0))
	assert.Equal(t, items, Cap(items, 5))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abc", 2))
	assert.Equal(t, "héll...", Truncate("héllo", 4))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestSetString(t *testing.T) {
	m := map[string]any{}

	SetString(m, "a", "  x ")
	SetString(m, "b", "   ")
	SetStrings(m, "c", nil)
	SetStrings(m, "d", []string{"y"})

	assert.Equal(t, map[string]any{"a": "x", "d": []string{"y"}}, m)
}

func TestScrubber_NilIsNoop(t *testing.T) {
	var s *Scrubber
	fields := domain.Fields{"email": "pi@example.edu"}

	assert.Equal(t, domain.Fields{"email": "pi@example.edu"}, s.Apply(fields))
	assert.Nil(t, NewScrubber(nil, false))
}

func TestScrubber_DropsFields(t *testing.T) {
	s := NewScrubber([]string{"co_pis", "program_officer"}, false)

	got := s.Apply(domain.Fields{"title": "T", "co_pis": []string{"A"}, "program_officer": "B"})

	assert.Equal(t, domain.Fields{"title": "T"}, got)
}

func TestScrubber_RedactsEmails(t *testing.T) {
	s := NewScrubber(nil, true)

	got := s.Apply(domain.Fields{
		"abstract": "Contact jane.doe@mit.edu for details.",
		"co_pis":   []string{"Bob (bob@uiuc.edu)", "Ann"},
		"amount":   1500000.0,
	})

	assert.Equal(t, "Contact [email redacted] for details.", got["abstract"])
	assert.Equal(t, []string{"Bob ([email redacted])", "Ann"}, got["co_pis"])
	assert.Equal(t, 1500000.0, got["amount"])
}
