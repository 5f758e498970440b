package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JIWOOK23/LocalMind/internal/classifier"
	"github.com/JIWOOK23/LocalMind/internal/core/domain"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driven"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driving"
)

// Interface assertions for the builtin tools.
var (
	_ driven.Tool = (*SearchDocumentsTool)(nil)
	_ driven.Tool = (*SearchChatHistoryTool)(nil)
	_ driven.Tool = (*StatisticsTool)(nil)
	_ driven.Tool = (*ListCategoriesTool)(nil)
	_ driven.Tool = (*ExportChatTool)(nil)
	_ driven.Tool = (*AnalyzeKeywordsTool)(nil)
)

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	val, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: missing argument %q", domain.ErrInvalidInput, key)
	}
	str, ok := val.(string)
	if !ok || strings.TrimSpace(str) == "" {
		return "", fmt.Errorf("%w: argument %q must be a non-empty string", domain.ErrInvalidInput, key)
	}
	return str, nil
}

// intArg extracts an optional integer argument. JSON decoding yields
// float64 for numbers.
func intArg(args map[string]any, key string, fallback int) int {
	val, ok := args[key]
	if !ok {
		return fallback
	}
	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return fallback
	}
}

// stringSliceArg extracts an optional string slice argument.
func stringSliceArg(args map[string]any, key string) []string {
	val, ok := args[key]
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// SearchDocumentsTool searches the indexed corpus.
type SearchDocumentsTool struct {
	retriever driving.Retriever
}

// NewSearchDocumentsTool creates the search_documents tool.
func NewSearchDocumentsTool(retriever driving.Retriever) *SearchDocumentsTool {
	return &SearchDocumentsTool{retriever: retriever}
}

func (t *SearchDocumentsTool) Name() string { return "search_documents" }

func (t *SearchDocumentsTool) Description() string {
	return "Search the indexed documents for passages relevant to a query."
}

func (t *SearchDocumentsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
			"k": map[string]any{
				"type":        "integer",
				"description": "Maximum number of passages to return",
			},
			"categories": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Restrict results to these categories",
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchDocumentsTool) Required() bool { return false }

func (t *SearchDocumentsTool) Call(ctx context.Context, args map[string]any) (string, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return "", err
	}

	opts := domain.SearchOptions{
		TopK:       intArg(args, "k", 0),
		Categories: stringSliceArg(args, "categories"),
	}
	opts.CategoryScoped = len(opts.Categories) > 0

	results, err := t.retriever.Retrieve(ctx, query, opts)
	if err != nil {
		return "", fmt.Errorf("search documents: %w", err)
	}
	if len(results) == 0 {
		return "No relevant passages found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d passages:\n", len(results))
	for i, result := range results {
		fmt.Fprintf(&b, "%d. [%s, score %.3f] %s\n",
			i+1, result.Source, result.Score, excerpt(result.Chunk.Content, 200))
	}
	return b.String(), nil
}

// SearchChatHistoryTool searches past conversation turns.
type SearchChatHistoryTool struct {
	conversations driven.ConversationStore
}

// NewSearchChatHistoryTool creates the search_chat_history tool.
func NewSearchChatHistoryTool(conversations driven.ConversationStore) *SearchChatHistoryTool {
	return &SearchChatHistoryTool{conversations: conversations}
}

func (t *SearchChatHistoryTool) Name() string { return "search_chat_history" }

func (t *SearchChatHistoryTool) Description() string {
	return "Search previous conversation turns for a query."
}

func (t *SearchChatHistoryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Text to look for in past questions and answers",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of turns to return",
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchChatHistoryTool) Required() bool { return false }

func (t *SearchChatHistoryTool) Call(ctx context.Context, args map[string]any) (string, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return "", err
	}
	limit := intArg(args, "limit", 5)

	turns, err := t.conversations.SearchTurns(ctx, query, limit)
	if err != nil {
		return "", fmt.Errorf("search chat history: %w", err)
	}
	if len(turns) == 0 {
		return "No matching conversation turns found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d turns:\n", len(turns))
	for i, turn := range turns {
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n",
			i+1, excerpt(turn.Query, 100), excerpt(turn.Response, 150))
	}
	return b.String(), nil
}

// StatisticsTool reports corpus and conversation counts.
type StatisticsTool struct {
	chunks        driven.ChunkStore
	conversations driven.ConversationStore
}

// NewStatisticsTool creates the get_statistics tool.
func NewStatisticsTool(chunks driven.ChunkStore, conversations driven.ConversationStore) *StatisticsTool {
	return &StatisticsTool{chunks: chunks, conversations: conversations}
}

func (t *StatisticsTool) Name() string { return "get_statistics" }

func (t *StatisticsTool) Description() string {
	return "Report how many documents, chunks, sessions and turns are stored."
}

func (t *StatisticsTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *StatisticsTool) Required() bool { return false }

func (t *StatisticsTool) Call(ctx context.Context, _ map[string]any) (string, error) {
	stats, err := t.chunks.Counts(ctx)
	if err != nil {
		return "", fmt.Errorf("corpus counts: %w", err)
	}
	sessions, turns, err := t.conversations.Counts(ctx)
	if err != nil {
		return "", fmt.Errorf("conversation counts: %w", err)
	}
	stats.SessionCount = sessions
	stats.TurnCount = turns

	var b strings.Builder
	fmt.Fprintf(&b, "Documents: %d\nChunks: %d\nSessions: %d\nTurns: %d\n",
		stats.DocumentCount, stats.ChunkCount, stats.SessionCount, stats.TurnCount)
	if len(stats.CategoryCounts) > 0 {
		b.WriteString("Chunks per category:\n")
		for _, name := range sortedKeys(stats.CategoryCounts) {
			fmt.Fprintf(&b, "  %s: %d\n", name, stats.CategoryCounts[name])
		}
	}
	return b.String(), nil
}

// ListCategoriesTool lists the known categories and their chunk counts.
type ListCategoriesTool struct {
	chunks driven.ChunkStore
}

// NewListCategoriesTool creates the list_categories tool.
func NewListCategoriesTool(chunks driven.ChunkStore) *ListCategoriesTool {
	return &ListCategoriesTool{chunks: chunks}
}

func (t *ListCategoriesTool) Name() string { return "list_categories" }

func (t *ListCategoriesTool) Description() string {
	return "List the categories assigned to indexed chunks."
}

func (t *ListCategoriesTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *ListCategoriesTool) Required() bool { return false }

func (t *ListCategoriesTool) Call(ctx context.Context, _ map[string]any) (string, error) {
	stats, err := t.chunks.Counts(ctx)
	if err != nil {
		return "", fmt.Errorf("corpus counts: %w", err)
	}
	if len(stats.CategoryCounts) == 0 {
		return "No categories assigned yet.", nil
	}

	var b strings.Builder
	for _, name := range sortedKeys(stats.CategoryCounts) {
		fmt.Fprintf(&b, "%s (%d chunks)\n", name, stats.CategoryCounts[name])
	}
	return b.String(), nil
}

// ExportChatTool writes a session transcript to the export directory.
// Export is user-initiated; a failed export fails the turn.
type ExportChatTool struct {
	conversations driven.ConversationStore
	exportDir     string
}

// NewExportChatTool creates the export_chat tool. If exportDir is
// empty, ~/.localmind/exports is used.
func NewExportChatTool(conversations driven.ConversationStore, exportDir string) *ExportChatTool {
	return &ExportChatTool{conversations: conversations, exportDir: exportDir}
}

func (t *ExportChatTool) Name() string { return "export_chat" }

func (t *ExportChatTool) Description() string {
	return "Export a conversation session to a json, txt or md file."
}

func (t *ExportChatTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"conversation_id": map[string]any{
				"type":        "string",
				"description": "The session id to export",
			},
			"format": map[string]any{
				"type":        "string",
				"enum":        []string{"json", "txt", "md"},
				"description": "Export file format",
			},
		},
		"required": []string{"conversation_id", "format"},
	}
}

func (t *ExportChatTool) Required() bool { return true }

func (t *ExportChatTool) Call(ctx context.Context, args map[string]any) (string, error) {
	sessionID, err := stringArg(args, "conversation_id")
	if err != nil {
		return "", err
	}
	format, err := stringArg(args, "format")
	if err != nil {
		return "", err
	}
	format = strings.ToLower(format)
	if format != "json" && format != "txt" && format != "md" {
		return "", fmt.Errorf("%w: unsupported export format %q", domain.ErrInvalidInput, format)
	}

	session, err := t.conversations.GetSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	turns, err := t.conversations.GetTurns(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load turns: %w", err)
	}

	content, err := renderExport(session, turns, format)
	if err != nil {
		return "", err
	}

	dir := t.exportDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve export dir: %w", err)
		}
		dir = filepath.Join(home, ".localmind", "exports")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	name := fmt.Sprintf("chat_%s_%s.%s", sessionID, time.Now().Format("20060102_150405"), format)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	return fmt.Sprintf("Exported %d turns to %s", len(turns), path), nil
}

// renderExport formats a transcript in the requested format.
func renderExport(session *domain.Session, turns []domain.ConversationTurn, format string) ([]byte, error) {
	switch format {
	case "json":
		payload := struct {
			Session *domain.Session           `json:"session"`
			Turns   []domain.ConversationTurn `json:"turns"`
		}{Session: session, Turns: turns}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal export: %w", err)
		}
		return data, nil

	case "md":
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", session.Title)
		for _, turn := range turns {
			fmt.Fprintf(&b, "## %s\n\n**Q:** %s\n\n**A:** %s\n\n",
				turn.CreatedAt.Format(time.RFC3339), turn.Query, turn.Response)
		}
		return []byte(b.String()), nil

	default: // txt
		var b strings.Builder
		fmt.Fprintf(&b, "Session: %s\n\n", session.Title)
		for _, turn := range turns {
			fmt.Fprintf(&b, "[%s]\nQ: %s\nA: %s\n\n",
				turn.CreatedAt.Format(time.RFC3339), turn.Query, turn.Response)
		}
		return []byte(b.String()), nil
	}
}

// AnalyzeKeywordsTool extracts frequency-ranked keywords from text.
type AnalyzeKeywordsTool struct {
	classifier *classifier.Classifier
}

// NewAnalyzeKeywordsTool creates the analyze_keywords tool.
func NewAnalyzeKeywordsTool(c *classifier.Classifier) *AnalyzeKeywordsTool {
	return &AnalyzeKeywordsTool{classifier: c}
}

func (t *AnalyzeKeywordsTool) Name() string { return "analyze_keywords" }

func (t *AnalyzeKeywordsTool) Description() string {
	return "Extract the most frequent keywords from a piece of text."
}

func (t *AnalyzeKeywordsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "The text to analyse",
			},
			"max_keywords": map[string]any{
				"type":        "integer",
				"description": "Maximum number of keywords to return",
			},
		},
		"required": []string{"text"},
	}
}

func (t *AnalyzeKeywordsTool) Required() bool { return false }

func (t *AnalyzeKeywordsTool) Call(_ context.Context, args map[string]any) (string, error) {
	text, err := stringArg(args, "text")
	if err != nil {
		return "", err
	}
	max := intArg(args, "max_keywords", 10)

	keywords := t.classifier.Keywords(text, max)
	if len(keywords) == 0 {
		return "No keywords found.", nil
	}
	category := t.classifier.BestCategory(keywords)
	return fmt.Sprintf("Keywords: %s\nCategory: %s", strings.Join(keywords, ", "), category), nil
}

// excerpt shortens text to at most n runes on a single line.
func excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
