package file

import "github.com/custodia-labs/qa-extract/internal/core/ports/driven"

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptFreeformSystem: `You write question and answer pairs about ACCESS-CI %s.

The user message holds structured data about one %s. Write one pair for each
category below that the data supports. Leave a category out only when the data
has nothing for it.

## Categories

%s

## Rules

1. Reply with a JSON array. Each element has "category", "question" and "answer".
2. "category" must be one of the category ids above.
3. Use only facts present in the data. Never guess or invent.
4. Phrase questions the way a researcher would type them into a search box.
5. Keep answers short but complete, with the exact numbers, names and dates from the data.
6. End every answer with the citation marker given in the user message.
7. At most one pair per category.

## Output format

` + "```json" + `
[
  {"category": "overview", "question": "...", "answer": "...\n\n<<SRC:domain:id>>"}
]
` + "```",

	driven.PromptJudgeSystem: `You grade question and answer pairs about ACCESS-CI resources.

The user message holds the source data and a batch of pairs generated from it.
Score each pair from 0.0 to 1.0 on:

- **faithfulness**: every claim in the answer is supported by the source data.
- **relevance**: the answer addresses the question asked.
- **completeness**: the answer covers the key facts the source has for that question.

## Rules

1. Reply with a JSON array holding one object per pair.
2. Each object has "pair_id", "faithfulness", "relevance", "completeness" and "issues".
3. "issues" is a list of short problem descriptions, empty when there are none.
4. Be strict on faithfulness: an unsupported claim lowers the score.
5. Be lenient on completeness: a focused answer that covers the main points is fine.

## Output format

` + "```json" + `
[
  {"pair_id": "...", "faithfulness": 0.95, "relevance": 0.9, "completeness": 0.85, "issues": []}
]
` + "```",

	driven.CategoriesPrompt("compute-resources"): `- **overview**: What is this resource and what is it built for?
- **organization**: Which organization operates this resource?
- **gpu_hardware**: What GPUs does it have (models, counts, memory)? *(skip if not applicable)*
- **cpu_hardware**: What CPUs or compute nodes does it have? *(skip if not applicable)*
- **capabilities**: Which features and capabilities does it support?
- **access**: How do I get access to or start using this resource?`,

	driven.CategoriesPrompt("software-discovery"): `- **overview**: What is this software and what kind of tool is it?
- **availability**: Which ACCESS resources have it installed?
- **versions**: Which versions are available?
- **usage**: How do I load and use it on ACCESS systems? *(skip if not applicable)*
- **research_use**: Which research areas use this software?`,

	driven.CategoriesPrompt("allocations"): `- **overview**: What is this project about (title, abstract, allocation type)?
- **people**: Who is the PI and which institution are they from?
- **resources**: Which compute resources are allocated and how much?
- **field_of_science**: Which field of science does the project fall under?
- **timeline**: When does the allocation start and end?`,

	driven.CategoriesPrompt("nsf-awards"): `- **overview**: What is this award about (title and abstract)?
- **people**: Who is the PI (and any co-PIs), and at which institution?
- **funding**: How much funding was awarded?
- **program**: Which NSF program funds the award?
- **timeline**: When does the award start and end?`,

	driven.CategoriesPrompt("affinity-groups"): `- **overview**: What is this group and which community does it serve?
- **people**: Who coordinates the group?
- **access**: How can I join or contact the group?
- **events**: Which events does the group run? *(skip if not applicable)*
- **knowledge_base**: Which articles or resources does the group maintain? *(skip if not applicable)*`,
}

const promptReadme = `# qa-extract Prompts

This directory holds the system prompts used for question/answer generation
and judging.

## Files

- ` + "`freeform_system.txt`" + ` - System prompt for open-ended generation
- ` + "`judge_system.txt`" + ` - System prompt for the quality judge
- ` + "`categories_<domain>.txt`" + ` - Category list inserted into the generation prompt

## Customisation

Edit any file to change model behaviour. Changes take effect on the next run.

## Format Placeholders

` + "`freeform_system.txt`" + ` takes three ` + "`%s`" + ` placeholders, in order: the domain
display name, the entity type and the category list. Keep all three.
`
