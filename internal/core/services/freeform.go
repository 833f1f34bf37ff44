package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// analyticalTerms raise a freeform question's complexity to moderate.
var analyticalTerms = []string{
	"compare",
	"compared",
	"comparison",
	"versus",
	"how many",
	"how much",
	"specifications",
	"performance",
}

// FreeformResult is the outcome of one open-ended generation call.
//
// Err is set for the expected failure modes: a gateway failure (wraps
// domain.ErrModelCall) or an unparseable response (wraps
// domain.ErrGenerationParse). In both cases Records is empty.
type FreeformResult struct {
	Records []domain.TrainingRecord
	Err     error
}

// ModelFailed returns true if the gateway call itself failed.
// A parse failure is not a model failure.
func (r FreeformResult) ModelFailed() bool {
	return errors.Is(r.Err, domain.ErrModelCall)
}

// FreeformGenerator produces a variable number of comprehensive records per
// entity from open-ended model output.
type FreeformGenerator struct {
	prompts *PromptBuilder

	// maxRecords caps records per entity; 0 means uncapped.
	maxRecords int
}

// NewFreeformGenerator creates a freeform generator.
func NewFreeformGenerator(prompts *PromptBuilder, maxRecords int) *FreeformGenerator {
	if prompts == nil {
		prompts = NewPromptBuilder(nil)
	}
	return &FreeformGenerator{prompts: prompts, maxRecords: maxRecords}
}

// Generate asks model for question/answer pairs about entity.
//
// The returned error is reserved for *domain.ValidationError and means the
// generation attempt as a whole must be discarded.
func (g *FreeformGenerator) Generate(
	ctx context.Context,
	entity domain.Entity,
	model driven.ModelGateway,
	maxTokens int,
) (FreeformResult, error) {
	system := g.prompts.FreeformSystem(entity.Domain)
	user, err := freeformUserPrompt(entity)
	if err != nil {
		return FreeformResult{Err: fmt.Errorf("%w: build prompt: %w", domain.ErrModelCall, err)}, nil
	}

	resp, err := model.Generate(ctx, system, user, maxTokens)
	if err != nil {
		return FreeformResult{Err: fmt.Errorf("%w: %s/%s: %w", domain.ErrModelCall, entity.Domain, entity.ID, err)}, nil
	}

	pairs, err := parsePairs(resp.Text)
	if err != nil {
		logger.Warn("Unparseable generation for %s/%s: %v", entity.Domain, entity.ID, err)
		return FreeformResult{Err: err}, nil
	}

	if g.maxRecords > 0 && len(pairs) > g.maxRecords {
		logger.Debug("Capping %s/%s from %d to %d records", entity.Domain, entity.ID, len(pairs), g.maxRecords)
		pairs = pairs[:g.maxRecords]
	}

	records := make([]domain.TrainingRecord, 0, len(pairs))
	for i, pair := range pairs {
		record, err := domain.NewRecord(domain.RecordParams{
			ID:          fmt.Sprintf("%s_%s_%d", entity.Domain, entity.ID, i+1),
			Question:    pair.Question,
			Answer:      pair.Answer,
			SourceRef:   entity.SourceRef(),
			Domain:      entity.Domain,
			Granularity: domain.GranularityComprehensive,
			Complexity:  complexityOf(pair.Question),
			SourceData:  entity.SourceData,
		})
		if err != nil {
			return FreeformResult{}, err
		}
		records = append(records, record)
	}

	logger.Debug("Generated %d comprehensive records for %s/%s", len(records), entity.Domain, entity.ID)
	return FreeformResult{Records: records}, nil
}

func freeformUserPrompt(entity domain.Entity) (string, error) {
	data, err := json.MarshalIndent(entity.Fields, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Entity ID: %s\n", entity.ID)
	fmt.Fprintf(&b, "Entity name: %s\n", entity.Name)
	fmt.Fprintf(&b, "Citation marker: %s\n\n", domain.CitationMarker(entity.Domain, entity.ID))
	b.WriteString("Generate as many question/answer pairs as the data supports. ")
	b.WriteString("End every answer with the citation marker above.\n\n")
	b.WriteString("Data:\n")
	b.Write(data)
	return b.String(), nil
}

// qaPair is one element of a model's JSON array.
type qaPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// parsePairs finds the first well-formed JSON array of objects in text and
// returns its complete pairs. Prose around the array is ignored.
func parsePairs(text string) ([]qaPair, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		var raw []json.RawMessage
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&raw); err != nil {
			continue
		}

		pairs := make([]qaPair, 0, len(raw))
		objects := 0
		for _, elem := range raw {
			var p qaPair
			if err := json.Unmarshal(elem, &p); err != nil {
				continue
			}
			objects++
			if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
				continue
			}
			pairs = append(pairs, p)
		}
		if objects == 0 && len(raw) > 0 {
			continue
		}
		return pairs, nil
	}
	return nil, fmt.Errorf("%w: no JSON array in response", domain.ErrGenerationParse)
}

func complexityOf(question string) domain.Complexity {
	q := strings.ToLower(question)
	for _, term := range analyticalTerms {
		if strings.Contains(q, term) {
			return domain.ComplexityModerate
		}
	}
	return domain.ComplexitySimple
}
