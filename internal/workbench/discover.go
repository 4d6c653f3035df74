package workbench

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/scout/sources"
)

const (
	ModeWire = "wire"
	ModeWeb  = "web"

	maxRanked     = 8
	maxCandidates = 30
	maxQueries    = 3
)

// DiscoverResult holds one discovery pass. Wire mode fills Signals with
// existing wire material ranked by relevance; web mode fills Candidates with
// ephemeral finds that only persist once accepted.
type DiscoverResult struct {
	Mode       string               `json:"mode"`
	Queries    []string             `json:"queries,omitempty"`
	Signals    []*types.Signal      `json:"signals,omitempty"`
	Candidates []*sources.Candidate `json:"candidates,omitempty"`
	Message    string               `json:"message,omitempty"`
}

const rankSystemPrompt = "You are a content strategist. Return ONLY a JSON array of signal IDs, most relevant first. No commentary."

const querySystemPrompt = "Return ONLY a JSON array of search query strings. No commentary."

func (s *service) Discover(ctx context.Context, orgID, storyID uuid.UUID, mode string) (*DiscoverResult, error) {
	view, err := s.Get(ctx, orgID, storyID)
	if err != nil {
		return nil, err
	}
	storyCtx := storyContext(view)

	switch mode {
	case ModeWire:
		return s.discoverFromWire(ctx, orgID, storyCtx)
	case ModeWeb, "":
		return s.discoverFromWeb(ctx, orgID, view.Story.Title, storyCtx)
	default:
		return nil, fmt.Errorf("discover: %w: unknown mode %q", pkgerrors.ErrInvalidArgument, mode)
	}
}

// storyContext compacts a story into the few lines the ranking and query
// prompts work from.
func storyContext(view *StoryView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story: %s", view.Story.Title)
	if view.Story.Angle != "" {
		fmt.Fprintf(&b, "\nAngle: %s", view.Story.Angle)
	}
	if view.Story.EditorialNotes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", view.Story.EditorialNotes)
	}
	var titles []string
	for _, att := range view.Signals {
		if att.Signal != nil && len(titles) < 5 {
			titles = append(titles, att.Signal.Title)
		}
	}
	if len(titles) > 0 {
		fmt.Fprintf(&b, "\nExisting signals: %s", strings.Join(titles, "; "))
	}
	return b.String()
}

func (s *service) discoverFromWire(ctx context.Context, orgID uuid.UUID, storyCtx string) (*DiscoverResult, error) {
	candidates, err := s.signalRepo.ListUnattached(dbctx.New(ctx), orgID, 50)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &DiscoverResult{Mode: ModeWire, Message: "no unattached signals on the wire"}, nil
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	ranked := s.rankByLLM(ctx, storyCtx, candidates)
	if ranked == nil {
		ranked = rankByOverlap(storyCtx, candidates)
	}
	if len(ranked) > maxRanked {
		ranked = ranked[:maxRanked]
	}
	return &DiscoverResult{Mode: ModeWire, Signals: ranked}, nil
}

// rankByLLM asks the fast model for an ordered id list. A nil return means
// the model was unavailable or unparseable and the caller should fall back.
func (s *service) rankByLLM(ctx context.Context, storyCtx string, candidates []*types.Signal) []*types.Signal {
	var list strings.Builder
	for _, sig := range candidates {
		preview := clipRunes(strings.ReplaceAll(sig.Body, "\n", " "), 100)
		fmt.Fprintf(&list, "[%s] (%s) %s: %s\n", sig.ID, sig.Type, sig.Title, preview)
	}
	prompt := fmt.Sprintf(
		"Given this story context:\n%s\n\nWhich of these signals are most relevant? Return the top %d most relevant IDs as a JSON array.\n\n%s",
		storyCtx, maxRanked, list.String())

	response, err := s.llm.GenerateTextFast(ctx, rankSystemPrompt, prompt)
	if err != nil {
		s.log.Warn("wire ranking failed, falling back to keyword overlap", "error", err.Error())
		return nil
	}
	ids := parseUUIDList(response)
	if len(ids) == 0 {
		s.log.Warn("wire ranking returned no parseable ids, falling back to keyword overlap")
		return nil
	}

	byID := make(map[uuid.UUID]*types.Signal, len(candidates))
	for _, sig := range candidates {
		byID[sig.ID] = sig
	}
	var ranked []*types.Signal
	for _, id := range ids {
		if sig, ok := byID[id]; ok {
			ranked = append(ranked, sig)
		}
	}
	if len(ranked) == 0 {
		return nil
	}
	return ranked
}

// rankByOverlap is the model-free fallback: score each signal by how many
// story keywords its title and body mention.
func rankByOverlap(storyCtx string, candidates []*types.Signal) []*types.Signal {
	keywords := map[string]bool{}
	for _, word := range strings.Fields(strings.ToLower(storyCtx)) {
		word = strings.Trim(word, ".,:;!?\"'()")
		if len(word) > 3 {
			keywords[word] = true
		}
	}

	type scored struct {
		sig   *types.Signal
		score int
	}
	var hits []scored
	for _, sig := range candidates {
		haystack := strings.ToLower(sig.Title + " " + sig.Body)
		score := 0
		for word := range keywords {
			if strings.Contains(haystack, word) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{sig, score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]*types.Signal, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.sig)
	}
	return out
}

func (s *service) discoverFromWeb(ctx context.Context, orgID uuid.UUID, title, storyCtx string) (*DiscoverResult, error) {
	settings, err := s.settingRepo.Resolve(dbctx.New(ctx), orgID)
	if err != nil {
		return nil, err
	}
	searchKey := settings["scout.search_api_key"]
	if searchKey == "" {
		return nil, fmt.Errorf("discover: %w: scout.search_api_key not set", pkgerrors.ErrNotConfigured)
	}

	queries := s.generateQueries(ctx, storyCtx)
	if len(queries) == 0 {
		queries = []string{title}
	}

	result := &DiscoverResult{Mode: ModeWeb, Queries: queries}
	for _, query := range queries {
		found, err := sources.SearchWeb(ctx, searchKey, query, 5)
		if err != nil {
			s.log.Warn("web discovery query failed", "query", query, "error", err.Error())
			continue
		}
		result.Candidates = append(result.Candidates, found...)
	}
	return result, nil
}

func (s *service) generateQueries(ctx context.Context, storyCtx string) []string {
	prompt := fmt.Sprintf(
		"Generate %d specific web search queries to find fresh news, data, and developments related to this editorial story:\n\n%s\n\nMake queries specific enough to find real articles, not generic. Include the current year %d where relevant.",
		maxQueries, storyCtx, time.Now().Year())

	response, err := s.llm.GenerateTextFast(ctx, querySystemPrompt, prompt)
	if err != nil {
		s.log.Warn("query generation failed, falling back to story title", "error", err.Error())
		return nil
	}

	var queries []string
	if err := json.Unmarshal([]byte(jsonSlice(response)), &queries); err != nil {
		return nil
	}
	queries = trimNonEmpty(queries)
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries
}

var uuidRe = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// parseUUIDList accepts either a JSON string array or loose text containing
// uuids, in document order.
func parseUUIDList(response string) []uuid.UUID {
	var out []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, match := range uuidRe.FindAllString(response, -1) {
		id, err := uuid.Parse(match)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// clipRunes truncates to at most n bytes without splitting a rune.
func clipRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// jsonSlice strips a code fence and isolates the outermost JSON array.
func jsonSlice(response string) string {
	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "```") {
		if _, rest, found := strings.Cut(text, "\n"); found {
			text = rest
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return "[]"
	}
	return text[start : end+1]
}

func trimNonEmpty(items []string) []string {
	var out []string
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
