// Command parley is a conversational assistant over local documents and
// the web.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/parley/internal/adapters/driven/ai"
	"github.com/custodia-labs/parley/internal/adapters/driven/config/file"
	"github.com/custodia-labs/parley/internal/adapters/driven/storage/blob"
	"github.com/custodia-labs/parley/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/parley/internal/adapters/driven/web"
	"github.com/custodia-labs/parley/internal/adapters/driven/websearch"
	"github.com/custodia-labs/parley/internal/adapters/driven/websearch/bing"
	"github.com/custodia-labs/parley/internal/adapters/driven/websearch/duckduckgo"
	"github.com/custodia-labs/parley/internal/adapters/driving/cli"
	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/core/services"
	"github.com/custodia-labs/parley/internal/logger"
	"github.com/custodia-labs/parley/internal/normalisers"
	"github.com/custodia-labs/parley/internal/postprocessors"
	"github.com/custodia-labs/parley/internal/sources/filesystem"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("loading .env: %v", err)
	}

	configStore, err := file.NewConfigStore("")
	if err != nil {
		logger.Error("opening config: %v", err)
		return 1
	}
	settingsService := services.NewSettingsService(configStore, ai.NewProber(ai.DefaultProbeTimeout))

	settings, err := settingsService.Get()
	if err != nil {
		logger.Error("reading settings: %v", err)
		return 1
	}

	app, err := build(settings)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	defer app.close()

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Orchestrator: app.orchestrator,
		Knowledge:    app.knowledge,
		Settings:     settingsService,
		Transcripts:  app.transcripts,
	})

	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}

// application holds the wired services and everything that needs closing.
type application struct {
	orchestrator *services.Orchestrator
	knowledge    *services.KnowledgeService
	transcripts  *services.TranscriptService
	closers      []func() error
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}
}

// build wires the services from settings. Missing model servers are not
// fatal: the orchestrator is always built and answers every turn, saying
// so when no chat model is available.
func build(settings *domain.AppSettings) (*application, error) {
	app := &application{}

	kbPath, err := knowledgePath(settings.Knowledge.Path)
	if err != nil {
		return nil, err
	}
	store, err := blob.Open(kbPath)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge base: %w", err)
	}
	app.closers = append(app.closers, store.Close)

	pipeline, err := postprocessors.DefaultPipeline(settings.Knowledge.ChunkWords)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("building ingestion pipeline: %w", err)
	}
	source := filesystem.New(normalisers.Defaults(), pipeline)

	models, err := ai.Init(settings)
	var (
		llm      driven.LLMService
		embedder driven.EmbeddingService
	)
	if err != nil {
		logger.Warn("%v", err)
	} else {
		for _, w := range models.Warnings {
			logger.Warn("%s", w)
		}
		llm, embedder = models.LLM, models.Embedder
		app.closers = append(app.closers, models.Close)
	}

	app.knowledge = services.NewKnowledgeService(store, embedder, source)

	var transcriptStore driven.TranscriptStore
	if settings.TranscriptEnabled {
		sqliteStore, err := sqlite.NewStore("")
		if err != nil {
			logger.Warn("transcripts disabled: %v", err)
		} else {
			transcriptStore = sqliteStore
			app.closers = append(app.closers, sqliteStore.Close)
		}
	}
	app.transcripts = services.NewTranscriptService(transcriptStore)

	prompts, err := file.NewPromptStore("")
	if err != nil {
		logger.Warn("using built-in prompts: %v", err)
	} else {
		logger.Debug("Prompts read from %s", prompts.Dir())
	}

	extractor := web.NewExtractor(web.Config{Timeout: settings.HTTPTimeout})
	app.closers = append(app.closers, extractor.Close)

	guard := websearch.DefaultGuardConfig()
	guard.RequestsPerSecond = settings.Search.RequestsPerSecond
	engines := []driven.SearchEngine{
		websearch.NewGuarded(duckduckgo.New(duckduckgo.Config{Timeout: settings.HTTPTimeout}), guard),
		websearch.NewGuarded(bing.New(bing.Config{Timeout: settings.HTTPTimeout}), guard),
	}

	retrieval := services.NewRetrievalService(app.knowledge, llm, settings.MaxTurns)
	webSearch := services.NewWebSearchService(engines, extractor, llm, services.WebSearchConfig{
		Engine:     settings.Search.Engine,
		NumResults: settings.Search.NumResults,
		NumExtract: settings.Search.NumExtract,
	})
	pages := services.NewPageExtractionService(extractor, llm, settings.Scraping.MaxChars, settings.MaxTurns)

	orch := services.NewOrchestrator(llm, retrieval, webSearch, pages, services.OrchestratorConfig{
		AllowedDomain: settings.Scraping.AllowedDomain,
		TopK:          settings.Knowledge.TopK,
		NumResults:    settings.Search.NumResults,
		NumExtract:    settings.Search.NumExtract,
		MaxTurns:      settings.MaxTurns,
	})
	orch.SetAttachmentHandling(app.knowledge, source)
	orch.SetTranscriptStore(transcriptStore)

	if prompts != nil {
		orch.SetPromptStore(prompts)
		retrieval.SetPromptStore(prompts)
		webSearch.SetPromptStore(prompts)
		pages.SetPromptStore(prompts)
	}

	app.orchestrator = orch
	return app, nil
}

// knowledgePath resolves the knowledge-base location. An empty setting
// uses the blob store's default file under ~/.parley.
func knowledgePath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".parley", blob.DefaultFileName), nil
}
