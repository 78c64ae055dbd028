package driven

// PromptStore serves the system prompts used on each answer path.
type PromptStore interface {
	// Load returns the template for name, or an error wrapping
	// domain.ErrNotFound when there is neither a custom nor a built-in one.
	Load(name string) (string, error)

	// Reload drops cached templates so edits on disk take effect.
	Reload()
}

// Prompt names.
const (
	// PromptRouterSystem classifies a query. It takes one %s: the domain
	// SCRAPING may visit.
	PromptRouterSystem = "router_system"

	PromptRAGSystem      = "rag_system"
	PromptInternetSystem = "internet_system"
	PromptScrapingSystem = "scraping_system"
	PromptChatSystem     = "chat_system"
)

// PromptStoreAware is implemented by services whose prompts can be swapped
// after construction. Without a store they use built-in prompts.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
