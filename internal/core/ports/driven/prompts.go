package driven

// PromptStore resolves named system prompts.
type PromptStore interface {
	// Load returns the text stored under name. Unknown names are an error
	// wrapping domain.ErrNotFound.
	Load(name string) (string, error)

	// Reload drops anything cached so edits on disk are picked up.
	Reload()
}

// Prompt names.
const (
	// PromptFreeformSystem takes, in order, the domain display name, the
	// entity type and the category list.
	PromptFreeformSystem = "freeform_system"

	// PromptJudgeSystem has no placeholders.
	PromptJudgeSystem = "judge_system"

	// PromptCategoriesPrefix is followed by a domain id.
	PromptCategoriesPrefix = "categories_"
)

// CategoriesPrompt names the category list for domain, e.g.
// "categories_compute-resources".
func CategoriesPrompt(domain string) string {
	return PromptCategoriesPrefix + domain
}
