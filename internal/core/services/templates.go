package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// FactTemplate renders one single-fact record from entity fields.
//
// Question and Answer use {field} placeholders. A boolean template sets
// BoolField and picks AnswerYes or AnswerNo by the field's truthiness.
type FactTemplate struct {
	ID             string
	Question       string
	Answer         string
	BoolField      string
	AnswerYes      string
	AnswerNo       string
	RequiredFields []string
}

// IsBool returns true for yes/no templates.
func (t FactTemplate) IsBool() bool {
	return t.BoolField != ""
}

// TemplateTable maps a domain to its ordered templates.
type TemplateTable map[string][]FactTemplate

// FieldPreparer derives template fields from cleaned fields.
// It receives a copy and may modify it in place.
type FieldPreparer func(fields domain.Fields)

// minAnswerLength is the shortest answer the quality guard accepts.
const minAnswerLength = 10

// qualityDefects match artifacts left behind by empty interpolation.
var qualityDefects = []*regexp.Regexp{
	regexp.MustCompile(`\b(is|by|at|for|uses|has|in|on|the)\s*[.,;:]`),
	regexp.MustCompile(`,\s*[.,;:]`),
	regexp.MustCompile(`,\s*$`),
	regexp.MustCompile(`\(\s*\)`),
	regexp.MustCompile(`  `),
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// TemplateGenerator produces factoid records from a template table.
// It never calls a model and never fails an entity.
type TemplateGenerator struct {
	table     TemplateTable
	preparers map[string]FieldPreparer
}

// NewTemplateGenerator creates a template generator. A nil table uses
// DefaultTemplateTable with the default field preparers.
func NewTemplateGenerator(table TemplateTable) *TemplateGenerator {
	if table == nil {
		return &TemplateGenerator{table: DefaultTemplateTable(), preparers: defaultPreparers()}
	}
	return &TemplateGenerator{table: table, preparers: map[string]FieldPreparer{}}
}

// WithPreparer registers a domain-specific field preparer.
func (g *TemplateGenerator) WithPreparer(domainName string, p FieldPreparer) *TemplateGenerator {
	g.preparers[domainName] = p
	return g
}

// Generate renders every applicable template for one entity.
//
// A template whose required fields are missing, whose placeholders cannot be
// resolved, or whose answer fails the quality guard yields no record.
// The returned error is reserved for *domain.ValidationError.
func (g *TemplateGenerator) Generate(domainName, entityID string, fields domain.Fields) ([]domain.TrainingRecord, error) {
	templates := g.table[domainName]
	if len(templates) == 0 {
		return nil, nil
	}

	prepared := prepareFields(fields)
	if p, ok := g.preparers[domainName]; ok {
		p(prepared)
	}

	citation := "\n\n" + domain.CitationMarker(domainName, entityID)
	sourceRef := domain.SourceRef(domainName, entityID)

	records := make([]domain.TrainingRecord, 0, len(templates))
	for _, tmpl := range templates {
		question, answer, err := renderTemplate(tmpl, prepared)
		if err != nil {
			logger.Debug("Template %s skipped for %s/%s: %v", tmpl.ID, domainName, entityID, err)
			continue
		}

		record, err := domain.NewRecord(domain.RecordParams{
			ID:          fmt.Sprintf("%s_%s_%s", domainName, entityID, tmpl.ID),
			Question:    question,
			Answer:      answer + citation,
			SourceRef:   sourceRef,
			Domain:      domainName,
			Granularity: domain.GranularityFactoid,
			Complexity:  domain.ComplexitySimple,
		})
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// renderTemplate renders question and answer, or returns an error wrapping
// domain.ErrTemplateRejected.
func renderTemplate(tmpl FactTemplate, fields domain.Fields) (string, string, error) {
	for _, name := range tmpl.RequiredFields {
		if !isPresent(fields[name]) {
			return "", "", fmt.Errorf("%w: required field %q missing", domain.ErrTemplateRejected, name)
		}
	}

	question, err := substitute(tmpl.Question, fields)
	if err != nil {
		return "", "", err
	}

	answerTmpl := tmpl.Answer
	if tmpl.IsBool() {
		answerTmpl = tmpl.AnswerNo
		if isPresent(fields[tmpl.BoolField]) && isTruthy(fields[tmpl.BoolField]) {
			answerTmpl = tmpl.AnswerYes
		}
	}
	answer, err := substitute(answerTmpl, fields)
	if err != nil {
		return "", "", err
	}

	if reason := qualityDefect(answer); reason != "" {
		return "", "", fmt.Errorf("%w: %s in %q", domain.ErrTemplateRejected, reason, answer)
	}
	return question, answer, nil
}

func substitute(format string, fields domain.Fields) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(format, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := fields[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		return displayValue(v)
	})
	if missing != "" {
		return "", fmt.Errorf("%w: unknown placeholder %q", domain.ErrTemplateRejected, missing)
	}
	return out, nil
}

// qualityDefect returns a short description of the first defect in answer,
// or "" if the answer is clean.
func qualityDefect(answer string) string {
	clean := strings.TrimSpace(domain.StripTrailingCitation(answer))
	if len(clean) < minAnswerLength {
		return "answer too short"
	}
	for _, re := range qualityDefects {
		if re.MatchString(clean) {
			return "malformed text " + strconv.Quote(re.String())
		}
	}
	return ""
}

// prepareFields returns a copy of fields with every list filtered of blank
// and placeholder entries and a {field}_count added for each list.
func prepareFields(fields domain.Fields) domain.Fields {
	out := make(domain.Fields, len(fields))
	for k, v := range fields {
		list, ok := asStringList(v)
		if !ok {
			out[k] = v
			continue
		}
		filtered := filterDisplayStrings(list)
		out[k] = filtered
		out[k+"_count"] = len(filtered)
	}
	return out
}

func asStringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// filterDisplayStrings trims entries and drops blanks and "unknown" placeholders.
func filterDisplayStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s := strings.TrimSpace(item)
		if s == "" || strings.HasPrefix(strings.ToLower(s), "unknown") {
			continue
		}
		out = append(out, s)
	}
	return out
}

// isPresent treats nil, "", and empty lists as absent. Zero and false are present.
func isPresent(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

func isTruthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return isPresent(v)
	}
}

func displayValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		list, _ := asStringList(val)
		return strings.Join(list, ", ")
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprint(val)
	}
}
