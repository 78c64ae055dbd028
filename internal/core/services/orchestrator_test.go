package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// --- Stub branches ---

type stubRAG struct {
	answer  domain.GroundedAnswer
	err     error
	calls   int
	queries []string
	history []domain.ConversationTurn
}

func (r *stubRAG) AnswerWithContext(
	_ context.Context, query string, _ int, history []domain.ConversationTurn,
) (domain.GroundedAnswer, error) {
	r.calls++
	r.queries = append(r.queries, query)
	r.history = history
	return r.answer, r.err
}

type stubWeb struct {
	answer  domain.GroundedAnswer
	err     error
	calls   int
	queries []string
}

func (w *stubWeb) ExtractAndSummarize(_ context.Context, query string, _, _ int) (domain.GroundedAnswer, error) {
	w.calls++
	w.queries = append(w.queries, query)
	return w.answer, w.err
}

type stubPage struct {
	answer domain.GroundedAnswer
	err    error
	calls  int
	urls   []string
}

func (p *stubPage) AnswerFromPage(
	_ context.Context, _ string, url string, _ []domain.ConversationTurn,
) (domain.GroundedAnswer, error) {
	p.calls++
	p.urls = append(p.urls, url)
	return p.answer, p.err
}

type orchestratorFixture struct {
	llm  *stubLLM
	rag  *stubRAG
	web  *stubWeb
	page *stubPage
	o    *Orchestrator
}

func newOrchestratorFixture(decision string) *orchestratorFixture {
	f := &orchestratorFixture{
		llm:  newRoutingLLM(decision, "direct answer"),
		rag:  &stubRAG{answer: domain.GroundedAnswer{Text: "from kb", Sources: []domain.SourceRef{{Name: "a.txt", Location: "/a.txt", Kind: domain.SourceKindFile}}}},
		web:  &stubWeb{answer: domain.GroundedAnswer{Text: "from web", Sources: []domain.SourceRef{{Name: "Site", Location: "https://site.example/", Kind: domain.SourceKindWeb}}}},
		page: &stubPage{answer: domain.GroundedAnswer{Text: "from page"}},
	}
	f.o = NewOrchestrator(f.llm, f.rag, f.web, f.page, OrchestratorConfig{
		AllowedDomain: "fr.wikipedia.org",
		MaxTurns:      10,
	})
	return f
}

func TestOrchestrator_RoutesByDecision(t *testing.T) {
	tests := []struct {
		name     string
		decision string
		wantTool domain.RoutingTool
		wantText string
	}{
		{"rag", `{"tool": "RAG", "urls": []}`, domain.ToolRAG, "from kb"},
		{"internet", `{"tool": "INTERNET", "urls": []}`, domain.ToolInternet, "from web"},
		{"scraping", `{"tool": "SCRAPING", "urls": ["https://fr.wikipedia.org/wiki/Paris"]}`, domain.ToolScraping, "from page"},
		{"llm", `{"tool": "LLM", "urls": []}`, domain.ToolLLM, "direct answer"},
		{"unknown tool", `{"tool": "CALCULATOR"}`, domain.ToolLLM, "direct answer"},
		{"bare word", "RAG", domain.ToolRAG, "from kb"},
		{"thinking model", "<think>links?</think>\n```json\n{\"tool\": \"INTERNET\"}\n```", domain.ToolInternet, "from web"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(tt.decision)
			session := f.o.NewSession()
			defer session.Close()

			answer := f.o.Handle(context.Background(), session, "question", nil)
			assert.Equal(t, tt.wantTool, answer.Tool)
			assert.Equal(t, tt.wantText, answer.Text)
			assert.False(t, answer.FellBack)
			assert.Empty(t, answer.Notices)
		})
	}
}

func TestOrchestrator_ClassificationFailureAnswersDirectly(t *testing.T) {
	f := newOrchestratorFixture("I think you want the internet")
	session := f.o.NewSession()

	answer := f.o.Handle(context.Background(), session, "hello", nil)
	assert.Equal(t, domain.ToolLLM, answer.Tool)
	assert.Equal(t, "direct answer", answer.Text)
	assert.Zero(t, f.web.calls)
}

func TestOrchestrator_RouterPromptNamesAllowedDomain(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "LLM"}`)
	f.o.Handle(context.Background(), f.o.NewSession(), "hello", nil)

	router := f.llm.requests[0]
	assert.Contains(t, router[0].Content, "exactly fr.wikipedia.org")
	assert.Equal(t, "Question: hello", router[1].Content)
}

func TestOrchestrator_RouterSeesOnlyTheQuestion(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "LLM"}`)
	session := f.o.NewSession()
	f.o.Handle(context.Background(), session, "who wrote Dune?", nil)
	require.Equal(t, 2, session.Len())

	f.llm.requests = nil
	f.o.Handle(context.Background(), session, "and when?", nil)

	router := f.llm.requests[0]
	require.Len(t, router, 2, "history is not sent to the router")
	assert.Equal(t, "Question: and when?", router[1].Content)
}

func TestOrchestrator_ScrapingGuardRail(t *testing.T) {
	tests := []struct {
		name     string
		decision string
		notice   string
	}{
		{"disallowed host", `{"tool": "SCRAPING", "urls": ["https://example.com/page"]}`, "only read pages on fr.wikipedia.org"},
		{"lookalike host", `{"tool": "SCRAPING", "urls": ["https://fr.wikipedia.org.evil.example/wiki"]}`, "only read pages on fr.wikipedia.org"},
		{"parent domain", `{"tool": "SCRAPING", "urls": ["https://wikipedia.org/wiki/Paris"]}`, "only read pages on fr.wikipedia.org"},
		{"no url", `{"tool": "SCRAPING", "urls": []}`, "No link was found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(tt.decision)

			answer := f.o.Handle(context.Background(), f.o.NewSession(), "read this", nil)
			assert.Zero(t, f.page.calls, "extraction branch must not run")
			assert.Equal(t, 1, f.web.calls)
			assert.Equal(t, domain.ToolInternet, answer.Tool)
			assert.False(t, answer.FellBack, "redirection is not a fallback")
			require.Len(t, answer.Notices, 1)
			assert.Contains(t, answer.Notices[0], tt.notice)
		})
	}
}

func TestOrchestrator_ScrapingAllowedHostVariants(t *testing.T) {
	for _, link := range []string{
		"https://FR.Wikipedia.org/wiki/Paris",
		"https://fr.wikipedia.org:443/wiki/Paris",
		"fr.wikipedia.org/wiki/Paris",
	} {
		f := newOrchestratorFixture(fmt.Sprintf(`{"tool": "SCRAP", "urls": [%q]}`, link))
		answer := f.o.Handle(context.Background(), f.o.NewSession(), "q", nil)
		assert.Equal(t, domain.ToolScraping, answer.Tool, link)
		assert.Equal(t, []string{link}, f.page.urls)
	}
}

func TestOrchestrator_FallbackOnEmptyKnowledgeBase(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "RAG"}`)
	f.rag.err = domain.ErrEmptyKnowledgeBase
	f.rag.answer = domain.GroundedAnswer{}

	answer := f.o.Handle(context.Background(), f.o.NewSession(), "what is new?", nil)

	assert.Equal(t, 1, f.rag.calls)
	assert.Equal(t, 1, f.web.calls)
	assert.Equal(t, domain.ToolInternet, answer.Tool)
	assert.True(t, answer.FellBack)
	assert.Equal(t, "from web", answer.Text)
	for _, src := range answer.Sources {
		assert.NotEqual(t, domain.SourceKindFile, src.Kind, "no knowledge-base sources after fallback")
	}
	require.Len(t, answer.Notices, 1)
	assert.Contains(t, answer.Notices[0], "knowledge base is empty")
}

func TestOrchestrator_FallbackOnBranchErrors(t *testing.T) {
	t.Run("rag error", func(t *testing.T) {
		f := newOrchestratorFixture(`{"tool": "RAG"}`)
		f.rag.err = fmt.Errorf("rag search: %w", domain.ErrNetwork)

		answer := f.o.Handle(context.Background(), f.o.NewSession(), "q", nil)
		assert.True(t, answer.FellBack)
		assert.Contains(t, answer.Notices[0], "could not answer")
	})

	t.Run("short page", func(t *testing.T) {
		f := newOrchestratorFixture(`{"tool": "SCRAPING", "urls": ["https://fr.wikipedia.org/wiki/X"]}`)
		f.page.err = fmt.Errorf("%w: too short", domain.ErrExtraction)

		answer := f.o.Handle(context.Background(), f.o.NewSession(), "q", nil)
		assert.Equal(t, 1, f.page.calls)
		assert.True(t, answer.FellBack)
		assert.Equal(t, domain.ToolInternet, answer.Tool)
		assert.Contains(t, answer.Notices[0], "could not read https://fr.wikipedia.org/wiki/X")
	})

	t.Run("direct chat error", func(t *testing.T) {
		f := newOrchestratorFixture(`{"tool": "LLM"}`)
		f.llm.respond = func(messages []driven.ChatMessage) (string, error) {
			if isRouterRequest(messages) {
				return `{"tool": "LLM"}`, nil
			}
			return "", domain.ErrLLMUnavailable
		}

		answer := f.o.Handle(context.Background(), f.o.NewSession(), "q", nil)
		assert.True(t, answer.FellBack)
		assert.Equal(t, "from web", answer.Text)
	})
}

func TestOrchestrator_InternetFailureIsFinal(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "RAG"}`)
	f.rag.err = domain.ErrEmptyKnowledgeBase
	f.web.err = errors.New("search down")
	session := f.o.NewSession()

	answer := f.o.Handle(context.Background(), session, "q", nil)

	assert.Equal(t, couldNotCompleteAnswer, answer.Text)
	assert.Equal(t, 1, f.web.calls, "fallback runs at most once")
	assert.Equal(t, 1, f.rag.calls)
	assert.Zero(t, session.Len(), "failed turns are not remembered")
}

func TestOrchestrator_WithoutModel(t *testing.T) {
	rag := &stubRAG{}
	web := &stubWeb{err: fmt.Errorf("internet answer: %w", domain.ErrLLMUnavailable)}
	page := &stubPage{}
	o := NewOrchestrator(nil, rag, web, page, OrchestratorConfig{AllowedDomain: "fr.wikipedia.org", MaxTurns: 10})
	session := o.NewSession()
	defer session.Close()

	answer := o.Handle(context.Background(), session, "hello", nil)

	assert.Equal(t, couldNotCompleteAnswer, answer.Text)
	assert.Contains(t, answer.Notices, noModelNotice)
	assert.Equal(t, 1, web.calls)
	assert.Zero(t, rag.calls)
	assert.Zero(t, session.Len())
}

func TestOrchestrator_InternetSearchesRawQuery(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "INTERNET"}`)
	f.o.Handle(context.Background(), f.o.NewSession(), "  latest go release  ", nil)
	assert.Equal(t, []string{"latest go release"}, f.web.queries)
}

func TestOrchestrator_HistoryBound(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "LLM"}`)
	session := f.o.NewSession()

	for i := 1; i <= 12; i++ {
		f.o.Handle(context.Background(), session, fmt.Sprintf("q%d", i), nil)
	}

	turns := session.Turns()
	require.Len(t, turns, 10)
	assert.Equal(t, domain.ConversationTurn{Role: domain.RoleUser, Content: "q8"}, turns[0])
	assert.Equal(t, domain.ConversationTurn{Role: domain.RoleAssistant, Content: "direct answer"}, turns[9])
	assert.Equal(t, "q12", turns[8].Content)
}

func TestOrchestrator_PassesHistoryToBranches(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "RAG"}`)
	session := f.o.NewSession()

	f.o.Handle(context.Background(), session, "first", nil)
	f.o.Handle(context.Background(), session, "second", nil)

	require.Len(t, f.rag.history, 2)
	assert.Equal(t, "first", f.rag.history[0].Content)
	assert.Equal(t, "from kb", f.rag.history[1].Content)

	direct := newOrchestratorFixture(`{"tool": "LLM"}`)
	s := direct.o.NewSession()
	direct.o.Handle(context.Background(), s, "hi", nil)
	direct.o.Handle(context.Background(), s, "again", nil)

	messages := direct.llm.last()
	require.Len(t, messages, 4)
	assert.Equal(t, defaultChatPrompt, messages[0].Content)
	assert.Equal(t, "hi", messages[1].Content)
	assert.Equal(t, "again", messages[3].Content)
}

func TestOrchestrator_ClosedSession(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "LLM"}`)
	session := f.o.NewSession()
	session.Close()

	answer := f.o.Handle(context.Background(), session, "q", nil)
	assert.Equal(t, sessionClosedAnswer, answer.Text)
	assert.Zero(t, f.llm.calls())

	answer = f.o.Handle(context.Background(), nil, "q", nil)
	assert.Equal(t, sessionClosedAnswer, answer.Text)
}

func TestOrchestrator_EmptyQuery(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "LLM"}`)
	answer := f.o.Handle(context.Background(), f.o.NewSession(), "   ", nil)
	assert.Equal(t, emptyQueryAnswer, answer.Text)
	assert.Zero(t, f.llm.calls())
}

func TestOrchestrator_Attachments(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "RAG"}`)
	source := &stubSource{
		docs: []domain.IngestDocument{testDoc("report", "quarterly numbers", "went up")},
		errs: []error{&domain.LoadError{Path: "/docs/deck.pptx", Err: domain.ErrUnsupportedType}},
	}
	store := &stubStore{}
	knowledge := NewKnowledgeService(store, &stubEmbedder{}, nil)
	f.o.SetAttachmentHandling(knowledge, source)

	answer := f.o.Handle(context.Background(), f.o.NewSession(), "Summarise this", []string{"/docs/report.txt", "/docs/deck.pptx"})

	require.Len(t, f.rag.queries, 1)
	assert.Equal(t, "Summarise this\n\nProvided Document:\nquarterly numbers went up\n", f.rag.queries[0])

	require.Len(t, store.batches, 1, "attachment ingested after answering")
	assert.Regexp(t, `^report_[0-9a-f]{8}_0$`, store.batches[0].IDs[0])

	assert.Equal(t, "from kb", answer.Text)
	require.Len(t, answer.Notices, 2)
	assert.Contains(t, answer.Notices[0], "Could not read attachment")
	assert.Contains(t, answer.Notices[1], "Added 1 document(s)")
}

func TestOrchestrator_AttachmentsWithoutContent(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "LLM"}`)
	f.o.SetAttachmentHandling(NewKnowledgeService(&stubStore{}, &stubEmbedder{}, nil), &stubSource{})

	f.o.Handle(context.Background(), f.o.NewSession(), "What is in it?", []string{"/docs/empty.txt"})

	messages := f.llm.last()
	assert.Equal(t, "What is in it?\n\nProvided Document:\n"+noDocumentContent+"\n", messages[len(messages)-1].Content)
}

func TestOrchestrator_AttachmentsUnsupported(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "LLM"}`)
	answer := f.o.Handle(context.Background(), f.o.NewSession(), "q", []string{"/a.txt"})
	require.Len(t, answer.Notices, 1)
	assert.Contains(t, answer.Notices[0], "not supported")
}

func TestOrchestrator_RecordsTranscript(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "RAG"}`)
	f.rag.err = domain.ErrEmptyKnowledgeBase
	transcripts := &stubTranscripts{}
	f.o.SetTranscriptStore(transcripts)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.o.now = func() time.Time { return fixed }

	session := f.o.NewSession()
	f.o.Handle(context.Background(), session, "news?", nil)

	require.Len(t, transcripts.entries, 1)
	entry := transcripts.entries[0]
	assert.Equal(t, session.ID(), entry.SessionID)
	assert.Equal(t, "news?", entry.Query)
	assert.Equal(t, "from web", entry.Answer)
	assert.Equal(t, domain.ToolInternet, entry.Tool)
	assert.True(t, entry.FellBack)
	assert.Equal(t, fixed, entry.CreatedAt)
	assert.NotEmpty(t, entry.ID)
}

func TestOrchestrator_TranscriptFailureIsNotFatal(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "LLM"}`)
	f.o.SetTranscriptStore(&stubTranscripts{err: errors.New("disk full")})
	session := f.o.NewSession()

	answer := f.o.Handle(context.Background(), session, "q", nil)
	assert.Equal(t, "direct answer", answer.Text)
	assert.Equal(t, 2, session.Len())
}

func TestOrchestrator_NewSessionAndWelcome(t *testing.T) {
	f := newOrchestratorFixture(`{"tool": "LLM"}`)

	a, b := f.o.NewSession(), f.o.NewSession()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 10, a.MaxTurns())
	assert.Contains(t, f.o.Welcome(), "fr.wikipedia.org")
}

func TestHostAllowed(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://fr.wikipedia.org/wiki/Lyon", true},
		{"http://FR.WIKIPEDIA.ORG", true},
		{"https://en.wikipedia.org/wiki/Lyon", false},
		{"https://fr.wikipedia.org@evil.example/", false},
		{"not a url at all", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, hostAllowed(tt.url, "fr.wikipedia.org"), tt.url)
	}
	assert.False(t, hostAllowed("https://fr.wikipedia.org", ""))
}

func TestNormaliseHost(t *testing.T) {
	assert.Equal(t, "fr.wikipedia.org", normaliseHost(" FR.wikipedia.org:443 "))
	assert.Equal(t, "example.com", normaliseHost("example.com"))
}
