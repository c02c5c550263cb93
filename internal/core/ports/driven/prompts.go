package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns the prompt content and any error encountered.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptSynthesisSystem is the system prompt for answer synthesis.
	// This prompt has no format placeholders.
	PromptSynthesisSystem = "synthesis_system"

	// PromptSynthesisUser wraps retrieved context and the question.
	// The template expects two %s placeholders: context, then question.
	PromptSynthesisUser = "synthesis_user"
)

// DefaultPrompts holds the built-in text of every well-known prompt.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptSynthesisSystem: "You are an AI assistant helping to answer questions based on the provided context. Use the context to answer the question thoroughly, including any relevant affiliations and references.",

	PromptSynthesisUser: "Context:\n%s\n\nQuestion:\n%s\n\nAnswer:",
}

// PromptStoreAware is an optional interface for services that can use custom prompts.
// Services implementing this interface can have their prompt templates customised
// by injecting a PromptStore after construction.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
