package services

import (
	"sync"

	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/logger"
)

// Fallback prompts used when no PromptStore is configured.
const (
	defaultRouterPrompt = `You are a query router. Choose the single best tool for the user's question.
RAG: questions about the local knowledge base. SCRAPING: only when the question contains a link whose host is exactly %s.
INTERNET: current events or links to any other site. LLM: anything needing no sources.
Answer with ONLY a JSON object: {"tool": "RAG" | "INTERNET" | "SCRAPING" | "LLM", "urls": ["..."]}`

	defaultRAGPrompt = `You are a helpful assistant. Answer using the supplied knowledge base and prefer it over your general knowledge.`

	defaultInternetPrompt = `You are a helpful assistant that answers using the internet sources provided. Synthesise them and always cite their URLs.`

	defaultScrapingPrompt = `You are a helpful assistant that answers using the content of one web page. Mention the page title and URL.`

	defaultChatPrompt = `You are Parley, a friendly and concise assistant.`
)

var fallbackPrompts = map[string]string{
	driven.PromptRouterSystem:   defaultRouterPrompt,
	driven.PromptRAGSystem:      defaultRAGPrompt,
	driven.PromptInternetSystem: defaultInternetPrompt,
	driven.PromptScrapingSystem: defaultScrapingPrompt,
	driven.PromptChatSystem:     defaultChatPrompt,
}

// prompts resolves prompt templates from an optional store.
// The zero value uses the fallback prompts.
type prompts struct {
	mu    sync.RWMutex
	store driven.PromptStore
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (p *prompts) SetPromptStore(store driven.PromptStore) {
	p.mu.Lock()
	p.store = store
	p.mu.Unlock()
}

// load returns the named prompt, falling back to the built-in default.
func (p *prompts) load(name string) string {
	p.mu.RLock()
	store := p.store
	p.mu.RUnlock()

	if store == nil {
		return fallbackPrompts[name]
	}
	prompt, err := store.Load(name)
	if err != nil || prompt == "" {
		logger.Debug("Prompt %q unavailable, using default: %v", name, err)
		return fallbackPrompts[name]
	}
	return prompt
}
