package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// JudgeResult is the outcome of one judge call.
//
// Err wraps domain.ErrJudgeUnavailable when the call failed or its response
// could not be parsed; no record is scored in that case.
type JudgeResult struct {
	Scored int
	Err    error
}

// JudgeEvaluator scores all records of one entity in a single judge call.
type JudgeEvaluator struct {
	prompts   *PromptBuilder
	maxTokens int
}

// NewJudgeEvaluator creates a judge evaluator.
func NewJudgeEvaluator(prompts *PromptBuilder, maxTokens int) *JudgeEvaluator {
	if prompts == nil {
		prompts = NewPromptBuilder(nil)
	}
	return &JudgeEvaluator{prompts: prompts, maxTokens: maxTokens}
}

// Evaluate scores records in place against fields, the entity's source data.
//
// The model's own confidence value is ignored: confidence is always the
// minimum of the three axis scores. Records missing from the response stay
// unscored. Evaluate never returns an error; failures are reported in
// JudgeResult.Err and leave every record unscored.
func (j *JudgeEvaluator) Evaluate(
	ctx context.Context,
	records []domain.TrainingRecord,
	fields domain.Fields,
	judge driven.ModelGateway,
) JudgeResult {
	if len(records) == 0 {
		return JudgeResult{}
	}

	user, err := judgeUserPrompt(records, fields)
	if err != nil {
		return JudgeResult{Err: fmt.Errorf("%w: build prompt: %w", domain.ErrJudgeUnavailable, err)}
	}

	resp, err := judge.Generate(ctx, j.prompts.JudgeSystem(), user, j.maxTokens)
	if err != nil {
		return JudgeResult{Err: fmt.Errorf("%w: %w", domain.ErrJudgeUnavailable, err)}
	}

	// Parse the whole response before touching any record.
	verdicts, err := parseVerdicts(resp.Text)
	if err != nil {
		return JudgeResult{Err: err}
	}

	scored := 0
	for i := range records {
		v, ok := verdicts[records[i].ID]
		if !ok {
			continue
		}
		records[i].Metadata.Scores = domain.NewJudgeScores(v.faithfulness, v.relevance, v.completeness, v.issues)
		scored++
	}

	logger.Debug("Judge scored %d/%d records", scored, len(records))
	return JudgeResult{Scored: scored}
}

func judgeUserPrompt(records []domain.TrainingRecord, fields domain.Fields) (string, error) {
	source, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("## Source data\n\n")
	b.Write(source)
	b.WriteString("\n\n## Q&A pairs to evaluate\n\n")
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### %s\n**Q:** %s\n**A:** %s\n", r.ID, r.Question, r.Answer)
	}
	return b.String(), nil
}

type verdict struct {
	faithfulness float64
	relevance    float64
	completeness float64
	issues       []string
}

// parseVerdicts extracts the first JSON array of objects from text and
// indexes its entries by record id. Entries may name the record with
// "record_id" or "pair_id".
func parseVerdicts(text string) (map[string]verdict, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		var raw []any
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err != nil {
			continue
		}

		out := make(map[string]verdict, len(raw))
		objects := 0
		for _, elem := range raw {
			obj, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			objects++
			id := stringValue(obj["record_id"])
			if id == "" {
				id = stringValue(obj["pair_id"])
			}
			if id == "" {
				continue
			}
			out[id] = verdict{
				faithfulness: scoreValue(obj["faithfulness"]),
				relevance:    scoreValue(obj["relevance"]),
				completeness: scoreValue(obj["completeness"]),
				issues:       issueList(obj["issues"]),
			}
		}
		if objects == 0 && len(raw) > 0 {
			continue
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: no JSON array in judge response", domain.ErrJudgeUnavailable)
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// scoreValue reads a score; missing or non-numeric values are 0.
func scoreValue(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func issueList(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return nil
	}
}
