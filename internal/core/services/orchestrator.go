package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JIWOOK23/LocalMind/internal/classifier"
	"github.com/JIWOOK23/LocalMind/internal/core/domain"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driven"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driving"
	"github.com/JIWOOK23/LocalMind/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.Chat = (*Orchestrator)(nil)

// Orchestration defaults.
const (
	// DefaultMaxToolIterations bounds the tool-dispatch loop.
	DefaultMaxToolIterations = 3

	// DefaultGroundingBudget is the grounded context size in runes.
	DefaultGroundingBudget = 4000

	// DefaultHistoryTurns is how many prior turns are included.
	DefaultHistoryTurns = 5

	// DefaultGenerateTimeout bounds one generation call.
	DefaultGenerateTimeout = 2 * time.Minute

	// DefaultToolTimeout bounds one tool call.
	DefaultToolTimeout = 30 * time.Second
)

const sessionTitleRunes = 40

// Orchestrator drives one conversation turn through its states:
// planning, retrieval, tool dispatch, grounding, generation, and
// persistence. It owns no storage; every dependency is a port.
type Orchestrator struct {
	retriever     driving.Retriever
	generator     driven.GenerationService
	conversations driven.ConversationStore
	registry      driven.ToolRegistry
	classifier    *classifier.Classifier

	maxToolIterations int
	groundingBudget   int
	historyTurns      int
	generateTimeout   time.Duration
	toolTimeout       time.Duration
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxToolIterations sets the tool-dispatch loop bound.
func WithMaxToolIterations(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxToolIterations = n
		}
	}
}

// WithGroundingBudget sets the grounded context size in runes.
func WithGroundingBudget(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.groundingBudget = n
		}
	}
}

// WithHistoryTurns sets how many prior turns ground the prompt.
func WithHistoryTurns(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.historyTurns = n
		}
	}
}

// WithGenerateTimeout bounds one generation call.
func WithGenerateTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.generateTimeout = d
		}
	}
}

// WithToolTimeout bounds one tool call.
func WithToolTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.toolTimeout = d
		}
	}
}

// NewOrchestrator creates the conversation orchestrator. The generator
// may be nil; turns then fall back to extractive answers.
func NewOrchestrator(
	retriever driving.Retriever,
	generator driven.GenerationService,
	conversations driven.ConversationStore,
	registry driven.ToolRegistry,
	classify *classifier.Classifier,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		retriever:         retriever,
		generator:         generator,
		conversations:     conversations,
		registry:          registry,
		classifier:        classify,
		maxToolIterations: DefaultMaxToolIterations,
		groundingBudget:   DefaultGroundingBudget,
		historyTurns:      DefaultHistoryTurns,
		generateTimeout:   DefaultGenerateTimeout,
		toolTimeout:       DefaultToolTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// turn carries the evolving state of one orchestration run.
type turn struct {
	state     domain.TurnState
	session   *domain.Session
	query     string
	plan      domain.Plan
	retrieved []domain.SearchResult
	toolCalls []domain.ToolCall
}

// transition advances the turn state with a log trace.
func (t *turn) transition(next domain.TurnState) {
	logger.Debug("Turn state: %s -> %s", t.state, next)
	t.state = next
}

// failed returns the diagnostics kept from a failed turn.
func (t *turn) failed() *domain.Answer {
	answer := &domain.Answer{
		State:     domain.StateFailed,
		ChunkIDs:  chunkIDs(t.retrieved),
		ToolCalls: t.toolCalls,
	}
	if t.session != nil {
		answer.SessionID = t.session.ID
	}
	return answer
}

// Ask answers a question grounded in retrieved chunks and tool
// results, records the turn, and returns the answer with provenance.
// On failure the returned answer carries the partial context gathered
// before the error.
func (o *Orchestrator) Ask(ctx context.Context, sessionID, query string) (*domain.Answer, error) {
	logger.Section("Ask")

	t := &turn{state: domain.StateReceived, query: strings.TrimSpace(query)}
	if t.query == "" {
		return t.failed(), fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	session, err := o.resolveSession(ctx, sessionID, t.query)
	if err != nil {
		return t.failed(), err
	}
	t.session = session

	t.transition(domain.StatePlanning)
	t.plan = o.plan(t.query, session.ID)
	logger.Debug("Plan: retrieve=%t, tools=%d", t.plan.Retrieve, len(t.plan.ToolCalls))

	if t.plan.Retrieve {
		t.transition(domain.StateRetrieving)
		results, err := o.retriever.Retrieve(ctx, t.query, domain.SearchOptions{})
		if err != nil {
			return t.failed(), fmt.Errorf("retrieve: %w", err)
		}
		t.retrieved = results
		logger.Debug("Retrieved %d chunks", len(results))
	}

	if len(t.plan.ToolCalls) > 0 {
		t.transition(domain.StateToolDispatch)
		for _, req := range t.plan.ToolCalls {
			call, err := o.dispatch(ctx, req)
			t.toolCalls = append(t.toolCalls, call)
			if err != nil {
				return t.failed(), err
			}
		}
	}

	t.transition(domain.StateGrounding)
	history, err := o.history(ctx, session.ID)
	if err != nil {
		return t.failed(), err
	}
	prompt := o.ground(t, history)

	t.transition(domain.StateGenerating)
	text, err := o.generate(ctx, t, prompt)
	if err != nil {
		return t.failed(), err
	}

	t.transition(domain.StateCompleted)
	answer := &domain.Answer{
		Text:      text,
		SessionID: session.ID,
		State:     domain.StateCompleted,
		ChunkIDs:  chunkIDs(t.retrieved),
		ToolCalls: t.toolCalls,
	}
	if err := o.persist(ctx, t, answer); err != nil {
		return answer, err
	}
	return answer, nil
}

// MimicStyle rewrites content in the style of the indexed exemplars.
// The grounded context is replaced with a style profile built from
// retrieved exemplar chunks.
func (o *Orchestrator) MimicStyle(ctx context.Context, sessionID, content string) (*domain.Answer, error) {
	logger.Section("MimicStyle")

	t := &turn{state: domain.StateReceived, query: strings.TrimSpace(content)}
	if t.query == "" {
		return t.failed(), fmt.Errorf("%w: empty content", domain.ErrInvalidInput)
	}
	if o.generator == nil {
		return t.failed(), domain.ErrGenerationUnavailable
	}

	session, err := o.resolveSession(ctx, sessionID, t.query)
	if err != nil {
		return t.failed(), err
	}
	t.session = session

	t.transition(domain.StateRetrieving)
	results, err := o.retriever.Retrieve(ctx, t.query, domain.SearchOptions{})
	if err != nil && !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return t.failed(), fmt.Errorf("retrieve exemplars: %w", err)
	}
	t.retrieved = results

	t.transition(domain.StateGrounding)
	passages := make([]string, len(results))
	for i, result := range results {
		passages[i] = result.Chunk.Content
	}
	profile := BuildStyleProfile(passages)
	if profile.Empty() {
		return t.failed(), fmt.Errorf("%w: no exemplar text indexed", domain.ErrNotFound)
	}
	logger.Debug("Style profile: %d sentences, avg len %.1f, formality %.2f",
		profile.SentenceCount, profile.AvgSentenceLen, profile.FormalityScore)

	t.transition(domain.StateGenerating)
	genCtx, cancel := context.WithTimeout(ctx, o.generateTimeout)
	defer cancel()

	result, err := o.generator.Generate(genCtx, driven.GenerationRequest{
		System: "Rewrite the user's content. Preserve its meaning exactly; change only the style.",
		Prompt: t.query,
		Constraints: driven.GenerateConstraints{
			Style: &profile,
		},
	})
	if err != nil {
		return t.failed(), fmt.Errorf("generate: %w", err)
	}

	t.transition(domain.StateCompleted)
	answer := &domain.Answer{
		Text:      result.Text,
		SessionID: session.ID,
		State:     domain.StateCompleted,
		ChunkIDs:  chunkIDs(t.retrieved),
	}
	if err := o.persist(ctx, t, answer); err != nil {
		return answer, err
	}
	return answer, nil
}

// resolveSession loads the session or opens a new one when no id is
// given.
func (o *Orchestrator) resolveSession(ctx context.Context, sessionID, query string) (*domain.Session, error) {
	if sessionID != "" {
		session, err := o.conversations.GetSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		return session, nil
	}

	title := excerpt(query, sessionTitleRunes)
	category := o.classifier.BestCategory(o.classifier.Keywords(query, 5))
	session, err := o.conversations.CreateSession(ctx, title, category)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.Debug("Opened session %s (%s)", session.ID, category)
	return session, nil
}

// plan decides up-front retrieval and tool calls from query phrasing.
// The generation model can still request further tools mid-turn.
func (o *Orchestrator) plan(query, sessionID string) domain.Plan {
	lower := strings.ToLower(query)

	switch {
	case containsAny(lower, "statistic", "how many documents", "how many chunks", "통계"):
		return domain.Plan{ToolCalls: []domain.ToolCallRequest{
			{Name: "get_statistics", Args: map[string]any{}},
		}}

	case containsAny(lower, "export", "내보내"):
		format := "txt"
		if strings.Contains(lower, "json") {
			format = "json"
		} else if strings.Contains(lower, "markdown") || strings.Contains(lower, " md") {
			format = "md"
		}
		return domain.Plan{ToolCalls: []domain.ToolCallRequest{
			{Name: "export_chat", Args: map[string]any{
				"conversation_id": sessionID,
				"format":          format,
			}},
		}}

	case containsAny(lower, "earlier", "last time", "we talked", "we discussed", "previous conversation"):
		return domain.Plan{
			Retrieve: true,
			ToolCalls: []domain.ToolCallRequest{
				{Name: "search_chat_history", Args: map[string]any{"query": query}},
			},
		}

	default:
		return domain.Plan{Retrieve: true}
	}
}

// dispatch runs one tool call. Optional tool failures are captured in
// the returned call; a Required tool failure or an unknown tool also
// returns an error that fails the turn.
func (o *Orchestrator) dispatch(ctx context.Context, req domain.ToolCallRequest) (domain.ToolCall, error) {
	call := domain.ToolCall{Name: req.Name, Args: req.Args}

	tool, err := o.registry.Lookup(req.Name)
	if err != nil {
		call.Error = err.Error()
		logger.Warn("Tool %q not registered", req.Name)
		return call, nil
	}

	toolCtx, cancel := context.WithTimeout(ctx, o.toolTimeout)
	defer cancel()

	logger.Debug("Dispatching tool %s", req.Name)
	result, err := tool.Call(toolCtx, req.Args)
	if err != nil {
		call.Error = err.Error()
		if tool.Required() {
			return call, fmt.Errorf("required tool %s: %w", req.Name, err)
		}
		logger.Warn("Tool %s failed: %v", req.Name, err)
		return call, nil
	}

	call.Result = result
	return call, nil
}

// history loads the recent turns used for grounding.
func (o *Orchestrator) history(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	if o.historyTurns == 0 {
		return nil, nil
	}
	turns, err := o.conversations.GetRecent(ctx, sessionID, o.historyTurns)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return turns, nil
}

// ground assembles the prompt: history, tool results, then retrieved
// chunks under the rune budget, dropping the lowest-ranked chunks
// first.
func (o *Orchestrator) ground(t *turn, history []domain.ConversationTurn) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", excerpt(turn.Query, 200), excerpt(turn.Response, 300))
		}
		b.WriteString("\n")
	}

	for _, call := range t.toolCalls {
		if call.Failed() {
			fmt.Fprintf(&b, "Tool %s failed: %s\n\n", call.Name, call.Error)
			continue
		}
		fmt.Fprintf(&b, "Tool %s result:\n%s\n\n", call.Name, call.Result)
	}

	if len(t.retrieved) > 0 {
		budget := o.groundingBudget
		var chunks strings.Builder
		// Results arrive ranked best first; stop when the budget is
		// spent so the worst chunks are the ones dropped.
		for i, result := range t.retrieved {
			passage := fmt.Sprintf("[%d] (%s)\n%s\n\n", i+1, result.Source, result.Chunk.Content)
			runes := []rune(passage)
			if len(runes) > budget {
				break
			}
			chunks.WriteString(passage)
			budget -= len(runes)
		}
		if chunks.Len() > 0 {
			b.WriteString("Relevant passages:\n")
			b.WriteString(chunks.String())
		}
	}

	fmt.Fprintf(&b, "Question: %s\n", t.query)
	return b.String()
}

// generate runs the bounded generation/tool loop.
func (o *Orchestrator) generate(ctx context.Context, t *turn, prompt string) (string, error) {
	if o.generator == nil {
		return o.extractiveAnswer(t)
	}

	specs := toolSpecs(o.registry.List())

	for iteration := 0; iteration <= o.maxToolIterations; iteration++ {
		genCtx, cancel := context.WithTimeout(ctx, o.generateTimeout)
		result, err := o.generator.Generate(genCtx, driven.GenerationRequest{
			System: "Answer using the provided passages and tool results. Say so when they do not contain the answer.",
			Prompt: prompt,
			Tools:  specs,
		})
		cancel()
		if err != nil {
			if errors.Is(err, domain.ErrGenerationUnavailable) && len(t.toolCalls) == 0 {
				logger.Warn("Generation unavailable, falling back to extractive answer")
				return o.extractiveAnswer(t)
			}
			return "", fmt.Errorf("generate: %w", err)
		}

		if result.ToolCall == nil {
			return result.Text, nil
		}
		if iteration == o.maxToolIterations {
			break
		}

		t.transition(domain.StateToolDispatch)
		call, err := o.dispatch(ctx, *result.ToolCall)
		t.toolCalls = append(t.toolCalls, call)
		if err != nil {
			return "", err
		}
		if call.Failed() {
			prompt += fmt.Sprintf("\nTool %s failed: %s\n", call.Name, call.Error)
		} else {
			prompt += fmt.Sprintf("\nTool %s result:\n%s\n", call.Name, call.Result)
		}
		t.transition(domain.StateGenerating)
	}

	return "", fmt.Errorf("%w: %d iterations", domain.ErrToolLoopExceeded, o.maxToolIterations)
}

// extractiveAnswer composes an answer directly from the gathered
// context when no generation model is reachable.
func (o *Orchestrator) extractiveAnswer(t *turn) (string, error) {
	if len(t.toolCalls) == 1 && !t.toolCalls[0].Failed() {
		return t.toolCalls[0].Result, nil
	}
	if len(t.retrieved) == 0 {
		return "", fmt.Errorf("%w: no model and no retrieved context", domain.ErrGenerationUnavailable)
	}

	var b strings.Builder
	b.WriteString("Most relevant passages:\n\n")
	for i, result := range t.retrieved {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "%d. (%s) %s\n\n", i+1, result.Source, excerpt(result.Chunk.Content, 300))
	}
	return b.String(), nil
}

// persist records the completed turn.
func (o *Orchestrator) persist(ctx context.Context, t *turn, answer *domain.Answer) error {
	_, err := o.conversations.AppendTurn(ctx, &domain.ConversationTurn{
		SessionID:  t.session.ID,
		Query:      t.query,
		Response:   answer.Text,
		Categories: o.classifier.Classify(t.query),
		ChunkIDs:   answer.ChunkIDs,
		ToolCalls:  answer.ToolCalls,
	})
	if err != nil {
		return fmt.Errorf("persist turn: %w", err)
	}
	return nil
}

func toolSpecs(tools []driven.Tool) []driven.ToolSpec {
	specs := make([]driven.ToolSpec, len(tools))
	for i, tool := range tools {
		specs[i] = driven.ToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		}
	}
	return specs
}

func chunkIDs(results []domain.SearchResult) []int64 {
	if len(results) == 0 {
		return nil
	}
	ids := make([]int64, len(results))
	for i, result := range results {
		ids[i] = result.Chunk.ID
	}
	return ids
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
