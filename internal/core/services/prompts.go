package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// domainLabel names a domain for prompts.
type domainLabel struct {
	display    string
	entityType string
}

var domainLabels = map[string]domainLabel{
	"compute-resources":  {display: "compute resources", entityType: "HPC system"},
	"software-discovery": {display: "software catalog", entityType: "software package"},
	"allocations":        {display: "allocation projects", entityType: "allocation project"},
	"nsf-awards":         {display: "NSF awards", entityType: "NSF award"},
	"affinity-groups":    {display: "affinity groups", entityType: "community group"},
}

// Fallbacks used when no prompt store is configured.
const (
	fallbackFreeformSystem = `You generate question/answer pairs about ACCESS-CI %s.
You will receive structured data about a single %s.

Categories:
%s

Output a JSON array of objects with "question" and "answer" fields.
Only use facts present in the data. Every answer must end with the citation marker from the user message.`

	fallbackJudgeSystem = `You evaluate question/answer pairs against their source data.
Score each pair from 0.0 to 1.0 on faithfulness, relevance and completeness.
Output a JSON array with one object per pair: "record_id", "faithfulness", "relevance", "completeness", "issues" (list of strings).`

	fallbackCategories = "- **overview**: What is this and what is it for?"
)

// PromptBuilder assembles system prompts from a PromptStore.
type PromptBuilder struct {
	store driven.PromptStore
}

// NewPromptBuilder creates a prompt builder. A nil store uses built-in fallbacks.
func NewPromptBuilder(store driven.PromptStore) *PromptBuilder {
	return &PromptBuilder{store: store}
}

// FreeformSystem returns the open-ended generation system prompt for a domain.
func (b *PromptBuilder) FreeformSystem(domainName string) string {
	label, ok := domainLabels[domainName]
	if !ok {
		label = domainLabel{display: domainName, entityType: "entity"}
	}
	tmpl := b.load(driven.PromptFreeformSystem, fallbackFreeformSystem)
	categories := strings.TrimSpace(b.load(driven.CategoriesPrompt(domainName), fallbackCategories))
	return fmt.Sprintf(tmpl, label.display, label.entityType, categories)
}

// JudgeSystem returns the judge system prompt.
func (b *PromptBuilder) JudgeSystem() string {
	return b.load(driven.PromptJudgeSystem, fallbackJudgeSystem)
}

func (b *PromptBuilder) load(name, fallback string) string {
	if b == nil || b.store == nil {
		return fallback
	}
	content, err := b.store.Load(name)
	if err != nil || strings.TrimSpace(content) == "" {
		if err != nil {
			logger.Warn("Prompt %q unavailable, using built-in default: %v", name, err)
		}
		return fallback
	}
	return content
}
