package driven

// Prompt names known to the prompt store.
const (
	// PromptQueryRewrite asks the model for reformulations of a query.
	// Placeholders: %[1]d maximum number of queries, %[2]s the query.
	PromptQueryRewrite = "query_rewrite"
)

// PromptStore loads LLM prompt templates by name.
type PromptStore interface {
	// Load returns the template for name.
	Load(name string) (string, error)
}
