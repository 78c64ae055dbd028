package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/core/ports/driving"
	"github.com/custodia-labs/parley/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.Orchestrator = (*Orchestrator)(nil)

// User-visible messages.
const (
	couldNotCompleteAnswer = "Sorry, I could not complete your request. Please try again later."
	noModelNotice          = "No language model is configured. Check 'parley settings show'."
	sessionClosedAnswer    = "This conversation has ended. Start a new one to continue."
	emptyQueryAnswer       = "Please enter a question."
	noDocumentContent      = "No document content provided."
)

// contextAnswerer answers from the knowledge base.
type contextAnswerer interface {
	AnswerWithContext(ctx context.Context, query string, k int, history []domain.ConversationTurn) (domain.GroundedAnswer, error)
}

// webSummariser answers from search results.
type webSummariser interface {
	ExtractAndSummarize(ctx context.Context, query string, numResults, numExtract int) (domain.GroundedAnswer, error)
}

// pageAnswerer answers from one extracted page.
type pageAnswerer interface {
	AnswerFromPage(ctx context.Context, query, url string, history []domain.ConversationTurn) (domain.GroundedAnswer, error)
}

// OrchestratorConfig configures routing and branch limits.
type OrchestratorConfig struct {
	// AllowedDomain is the only host the page branch may fetch.
	AllowedDomain string

	// TopK is the number of knowledge-base records per RAG answer.
	TopK int

	// NumResults and NumExtract bound the INTERNET branch.
	NumResults int
	NumExtract int

	// MaxTurns bounds each session's rolling history.
	MaxTurns int
}

// Orchestrator routes each query to the knowledge base, the web, a single
// page or the model, falling back to the web at most once per turn.
type Orchestrator struct {
	prompts

	llm  driven.LLMService
	rag  contextAnswerer
	web  webSummariser
	page pageAnswerer
	cfg  OrchestratorConfig

	knowledge   driving.KnowledgeService
	source      driven.DocumentSource
	transcripts driven.TranscriptStore

	now func() time.Time
}

// NewOrchestrator creates an orchestrator over the four answer branches.
func NewOrchestrator(
	llm driven.LLMService,
	rag contextAnswerer,
	web webSummariser,
	page pageAnswerer,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = domain.DefaultMaxTurns
	}
	cfg.AllowedDomain = normaliseHost(cfg.AllowedDomain)

	return &Orchestrator{
		llm:  llm,
		rag:  rag,
		web:  web,
		page: page,
		cfg:  cfg,
		now:  time.Now,
	}
}

// SetAttachmentHandling enables query attachments: files are read through
// source, quoted in the prompt and then ingested into knowledge.
func (o *Orchestrator) SetAttachmentHandling(knowledge driving.KnowledgeService, source driven.DocumentSource) {
	o.knowledge = knowledge
	o.source = source
}

// SetTranscriptStore enables recording of completed turns.
func (o *Orchestrator) SetTranscriptStore(store driven.TranscriptStore) {
	o.transcripts = store
}

// NewSession starts a conversation with an empty rolling history.
func (o *Orchestrator) NewSession() *domain.ConversationSession {
	session := domain.NewConversationSession(uuid.NewString(), o.cfg.MaxTurns)
	logger.Debug("Session %s started", session.ID())
	session.OnClose(func() {
		logger.Debug("Session %s closed", session.ID())
	})
	return session
}

// Welcome returns the greeting shown when a session starts.
func (o *Orchestrator) Welcome() string {
	return fmt.Sprintf("Welcome! I'm your AI assistant. Ask me about your documents, "+
		"the web, or a page on %s.", o.cfg.AllowedDomain)
}

// turn carries the state of one Handle call.
type turn struct {
	query    string
	prompt   string
	history  []domain.ConversationTurn
	answer   domain.Answer
	attached []domain.IngestDocument
}

func (t *turn) notice(format string, args ...any) {
	t.answer.Notices = append(t.answer.Notices, fmt.Sprintf(format, args...))
}

// Handle answers one query. It always returns a sendable answer.
func (o *Orchestrator) Handle(
	ctx context.Context, session *domain.ConversationSession, query string, attachments []string,
) domain.Answer {
	query = strings.TrimSpace(query)
	if session == nil || session.Closed() {
		return domain.Answer{Text: sessionClosedAnswer, Tool: domain.ToolLLM}
	}
	if query == "" && len(attachments) == 0 {
		return domain.Answer{Text: emptyQueryAnswer, Tool: domain.ToolLLM}
	}

	logger.Section("Turn")
	log := logger.Session(session.ID())
	t := &turn{query: query, prompt: query, history: session.Turns()}
	o.attach(ctx, t, attachments)

	decision := o.classify(ctx, query)
	tool := o.guard(t, decision)
	log.Info("Routing %q to %s", truncateRunes(query, 60), tool)

	if !o.dispatch(ctx, t, tool, decision.FirstURL()) {
		log.Error("Turn failed: no branch produced an answer")
		if o.llm == nil {
			t.notice(noModelNotice)
		}
		t.answer.Text = couldNotCompleteAnswer
		t.answer.Tool = domain.ToolInternet
		o.ingestAttachments(ctx, t)
		return t.answer
	}

	if err := session.AppendExchange(query, t.answer.Text); err != nil {
		log.Warn("History not updated: %v", err)
	}
	o.record(ctx, session.ID(), t)
	o.ingestAttachments(ctx, t)
	return t.answer
}

// classify asks the model for a routing decision. Any failure routes to LLM.
func (o *Orchestrator) classify(ctx context.Context, query string) domain.RoutingDecision {
	if o.llm == nil {
		return domain.RoutingDecision{Tool: domain.ToolLLM}
	}

	system := o.load(driven.PromptRouterSystem)
	if strings.Contains(system, "%s") {
		system = fmt.Sprintf(system, o.cfg.AllowedDomain)
	}
	messages := buildMessages(system, nil, 0, "Question: "+query)

	raw, err := o.llm.Chat(ctx, messages, driven.ChatOptions{})
	if err != nil {
		logger.Warn("Classification failed, answering directly: %v", err)
		return domain.RoutingDecision{Tool: domain.ToolLLM}
	}
	decision, err := domain.ParseRoutingDecision(raw)
	if err != nil {
		logger.Warn("Classification failed, answering directly: %v", err)
		return domain.RoutingDecision{Tool: domain.ToolLLM}
	}
	logger.Debug("Router chose %s (urls=%v)", decision.Tool, decision.URLs)
	return decision
}

// guard redirects SCRAPING to INTERNET unless its first URL is on the
// allowed host.
func (o *Orchestrator) guard(t *turn, decision domain.RoutingDecision) domain.RoutingTool {
	if decision.Tool != domain.ToolScraping {
		return decision.Tool
	}

	link := decision.FirstURL()
	switch {
	case link == "":
		t.notice("No link was found in your question, so I searched the web instead.")
	case !hostAllowed(link, o.cfg.AllowedDomain):
		t.notice("I can only read pages on %s directly, so I searched the web instead.", o.cfg.AllowedDomain)
	default:
		return domain.ToolScraping
	}
	return domain.ToolInternet
}

// dispatch runs the branch for tool and, on failure, the INTERNET fallback.
// It reports whether an answer was produced.
func (o *Orchestrator) dispatch(ctx context.Context, t *turn, tool domain.RoutingTool, link string) bool {
	var (
		ga  domain.GroundedAnswer
		err error
	)

	switch tool {
	case domain.ToolInternet:
		return o.internet(ctx, t, false)
	case domain.ToolRAG:
		ga, err = o.rag.AnswerWithContext(ctx, t.prompt, o.cfg.TopK, t.history)
		if errors.Is(err, domain.ErrEmptyKnowledgeBase) {
			t.notice("The knowledge base is empty, so I searched the web instead.")
		} else if err != nil {
			t.notice("The knowledge base could not answer, so I searched the web instead.")
		}
	case domain.ToolScraping:
		ga, err = o.page.AnswerFromPage(ctx, t.prompt, link, t.history)
		if err != nil {
			t.notice("I could not read %s, so I searched the web instead.", link)
		}
	default:
		ga, err = o.chat(ctx, t)
		if err != nil {
			t.notice("The model could not answer directly, so I searched the web instead.")
		}
	}

	if err != nil {
		logger.Warn("%s branch failed, falling back to INTERNET: %v", tool, err)
		return o.internet(ctx, t, true)
	}

	if tool == domain.ToolUnknown {
		tool = domain.ToolLLM
	}
	t.answer.Text = ga.Text
	t.answer.Sources = ga.Sources
	t.answer.Tool = tool
	return true
}

// internet runs the web branch. It never falls back further.
func (o *Orchestrator) internet(ctx context.Context, t *turn, fallback bool) bool {
	ga, err := o.web.ExtractAndSummarize(ctx, t.query, o.cfg.NumResults, o.cfg.NumExtract)
	if err != nil {
		logger.Warn("INTERNET branch failed: %v", err)
		return false
	}
	t.answer.Text = ga.Text
	t.answer.Sources = ga.Sources
	t.answer.Tool = domain.ToolInternet
	t.answer.FellBack = fallback
	return true
}

// chat answers directly from the model with the rolling history.
func (o *Orchestrator) chat(ctx context.Context, t *turn) (domain.GroundedAnswer, error) {
	if o.llm == nil {
		return domain.GroundedAnswer{}, fmt.Errorf("direct answer: %w", domain.ErrLLMUnavailable)
	}
	messages := buildMessages(o.load(driven.PromptChatSystem), t.history, o.cfg.MaxTurns, t.prompt)
	text, err := o.llm.Chat(ctx, messages, driven.ChatOptions{})
	if err != nil {
		return domain.GroundedAnswer{}, err
	}
	return domain.GroundedAnswer{Text: text}, nil
}

// attach reads the attachments and quotes their text in the prompt.
func (o *Orchestrator) attach(ctx context.Context, t *turn, paths []string) {
	if len(paths) == 0 {
		return
	}
	if o.source == nil {
		t.notice("Attachments are not supported here and were ignored.")
		return
	}

	docs, errs := o.source.Load(ctx, paths)
	for _, err := range errs {
		logger.Warn("Attachment skipped: %v", err)
		t.notice("Could not read attachment: %v", err)
	}

	var text []string
	for i := range docs {
		// Uploads get fresh ids so re-sending a file never collides.
		docs[i].Source.ID = docs[i].Source.ID + "_" + uuid.NewString()[:8]
		text = append(text, strings.Join(docs[i].Chunks, " "))
	}
	t.attached = docs

	content := strings.TrimSpace(strings.Join(text, "\n\n"))
	if content == "" {
		content = noDocumentContent
	}
	t.prompt = fmt.Sprintf("%s\n\nProvided Document:\n%s\n", t.query, content)
}

// ingestAttachments adds the turn's attachments to the knowledge base.
func (o *Orchestrator) ingestAttachments(ctx context.Context, t *turn) {
	if len(t.attached) == 0 || o.knowledge == nil {
		return
	}

	report, err := o.knowledge.Ingest(ctx, t.attached)
	if err != nil {
		logger.Warn("Attachment ingestion failed: %v", err)
	}
	for _, doc := range t.attached {
		if failure, ok := report.Failures[doc.Source.ID]; ok {
			t.notice("Could not add %s to the knowledge base: %v", filepath.Base(doc.Source.Path), failure)
		}
	}
	if report.Ingested > 0 {
		t.notice("Added %d document(s) to the knowledge base.", report.Ingested)
	}
}

// record saves the completed turn. Failures are logged only.
func (o *Orchestrator) record(ctx context.Context, sessionID string, t *turn) {
	if o.transcripts == nil {
		return
	}
	entry := domain.TranscriptEntry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Query:     t.query,
		Answer:    t.answer.Text,
		Tool:      t.answer.Tool,
		FellBack:  t.answer.FellBack,
		Sources:   t.answer.Sources,
		CreatedAt: o.now(),
	}
	if err := o.transcripts.Record(ctx, entry); err != nil {
		logger.Warn("Transcript not recorded: %v", err)
	}
}

// hostAllowed reports whether rawURL's host is exactly allowed.
// Comparison ignores case and port.
func hostAllowed(rawURL, allowed string) bool {
	if allowed == "" {
		return false
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return normaliseHost(u.Hostname()) == allowed
}

// normaliseHost lowercases a host and strips any port.
func normaliseHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if u, err := url.Parse("//" + host); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return host
}
