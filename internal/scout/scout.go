// Package scout orchestrates the source adapters: fan out, filter, ingest.
package scout

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	"github.com/pressroomhq/pressroom-backend/internal/platform/anthropic"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
	"github.com/pressroomhq/pressroom-backend/internal/scout/sources"
)

// RunResult is the partial-failure accounting for one scout run.
type RunResult struct {
	RawCount     int               `json:"raw_count"`
	KeptCount    int               `json:"kept_count"`
	FilteredOut  int               `json:"filtered_out"`
	Duplicates   int               `json:"duplicates_skipped"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
	Signals      []*types.Signal   `json:"signals"`
}

type Service interface {
	// Run executes every configured adapter for the org. Adapter failures
	// are collected per source, never raised; a run with zero reachable
	// sources still returns a well-formed empty result.
	Run(ctx context.Context, orgID uuid.UUID) (*RunResult, error)
	// IngestCandidates persists externally sourced candidates (e.g. accepted
	// web-discovery results) through the normal dedup path.
	IngestCandidates(ctx context.Context, orgID uuid.UUID, candidates []*sources.Candidate) (*RunResult, error)
}

type service struct {
	log        *logger.Logger
	signalRepo repos.SignalRepo
	settings   repos.SettingRepo
	llm        anthropic.Client
}

func NewService(baseLog *logger.Logger, signalRepo repos.SignalRepo, settings repos.SettingRepo, llm anthropic.Client) Service {
	return &service{
		log:        baseLog.With("service", "ScoutService"),
		signalRepo: signalRepo,
		settings:   settings,
		llm:        llm,
	}
}

// sourceConfig is the immutable per-run snapshot of the org's scout settings.
type sourceConfig struct {
	Repos       []string
	HNKeywords  []string
	Subreddits  []string
	RSSFeeds    []string
	WebQueries  []string
	GitHubToken string
	SearchKey   string
	SinceHours  int
	Context     string
}

func (s *service) loadConfig(ctx context.Context, orgID uuid.UUID) (*sourceConfig, error) {
	merged, err := s.settings.Resolve(dbctx.New(ctx), orgID)
	if err != nil {
		return nil, err
	}
	cfg := &sourceConfig{
		Repos:       parseList(merged["scout.github_repos"]),
		HNKeywords:  parseList(merged["scout.hn_keywords"]),
		Subreddits:  parseList(merged["scout.subreddits"]),
		RSSFeeds:    parseList(merged["scout.rss_feeds"]),
		WebQueries:  parseList(merged["scout.web_queries"]),
		GitHubToken: merged["scout.github_token"],
		SearchKey:   merged["scout.search_api_key"],
		SinceHours:  24,
		Context:     merged["company.context"],
	}
	if raw := merged["scout.since_hours"]; raw != "" {
		if hours, err := parseInt(raw); err == nil && hours > 0 {
			cfg.SinceHours = hours
		}
	}

	// Few or no repos configured: try discovery from the org's GitHub profile.
	if len(cfg.Repos) < 3 {
		if profile := githubProfile(merged["company.social_profiles"]); profile != "" {
			discovered, err := sources.DiscoverRepos(ctx, profile, cfg.GitHubToken, 20)
			if err != nil {
				s.log.Warn("github repo discovery failed", "org_id", orgID, "error", err.Error())
			} else {
				cfg.Repos = mergeRepos(cfg.Repos, discovered)
			}
		}
	}
	return cfg, nil
}

func (s *service) adapters(cfg *sourceConfig) []sources.Adapter {
	since := time.Duration(cfg.SinceHours) * time.Hour
	var out []sources.Adapter
	for _, repo := range cfg.Repos {
		out = append(out,
			sources.NewGitHubReleases(repo, cfg.GitHubToken, since),
			sources.NewGitHubCommits(repo, cfg.GitHubToken, since),
		)
	}
	if len(cfg.HNKeywords) > 0 {
		out = append(out, sources.NewHackerNews(cfg.HNKeywords))
	}
	if len(cfg.Subreddits) > 0 {
		out = append(out, sources.NewReddit(cfg.Subreddits))
	}
	if len(cfg.RSSFeeds) > 0 {
		out = append(out, sources.NewRSS(cfg.RSSFeeds))
	}
	if len(cfg.WebQueries) > 0 && cfg.SearchKey != "" {
		out = append(out, sources.NewWebSearch(cfg.SearchKey, cfg.WebQueries))
	}
	return out
}

func (s *service) Run(ctx context.Context, orgID uuid.UUID) (*RunResult, error) {
	cfg, err := s.loadConfig(ctx, orgID)
	if err != nil {
		return nil, err
	}
	adapters := s.adapters(cfg)
	s.log.Info("scout run starting", "org_id", orgID, "adapters", len(adapters))

	candidates, sourceErrors := fanOut(ctx, adapters)

	kept := s.filterRelevant(ctx, candidates, cfg.Context)
	result, err := s.ingest(ctx, orgID, kept)
	if err != nil {
		return nil, err
	}
	result.RawCount = len(candidates)
	result.FilteredOut = len(candidates) - len(kept)
	result.SourceErrors = sourceErrors

	s.log.Info("scout run finished",
		"org_id", orgID,
		"raw", result.RawCount,
		"kept", result.KeptCount,
		"filtered", result.FilteredOut,
		"duplicates", result.Duplicates,
		"source_errors", len(sourceErrors),
	)
	return result, nil
}

func (s *service) IngestCandidates(ctx context.Context, orgID uuid.UUID, candidates []*sources.Candidate) (*RunResult, error) {
	result, err := s.ingest(ctx, orgID, candidates)
	if err != nil {
		return nil, err
	}
	result.RawCount = len(candidates)
	return result, nil
}

// fanOut runs every adapter concurrently and merges only after all settle.
func fanOut(ctx context.Context, adapters []sources.Adapter) ([]*sources.Candidate, map[string]string) {
	var mu sync.Mutex
	var merged []*sources.Candidate
	sourceErrors := map[string]string{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, adapter := range adapters {
		adapter := adapter
		g.Go(func() error {
			items, err := adapter.Fetch(gctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sourceErrors[adapter.Name()] = err.Error()
				return nil
			}
			merged = append(merged, items...)
			return nil
		})
	}
	_ = g.Wait()
	return merged, sourceErrors
}

func (s *service) ingest(ctx context.Context, orgID uuid.UUID, candidates []*sources.Candidate) (*RunResult, error) {
	rows := make([]*types.Signal, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c.Title == "" {
			continue
		}
		raw := datatypes.JSON(c.Raw)
		if len(raw) == 0 {
			raw = datatypes.JSON([]byte(`{}`))
		}
		rows = append(rows, &types.Signal{
			ID:          uuid.New(),
			OrgID:       &orgID,
			Type:        c.Type,
			Source:      c.Source,
			Title:       c.Title,
			Body:        c.Body,
			URL:         c.URL,
			Raw:         raw,
			Fingerprint: types.Fingerprint(c.Type, c.URL, c.Title),
		})
	}
	ingested, err := s.signalRepo.Ingest(dbctx.New(ctx), rows)
	if err != nil {
		return nil, err
	}
	return &RunResult{
		KeptCount:  len(ingested.Inserted),
		Duplicates: ingested.Duplicates,
		Signals:    ingested.Inserted,
	}, nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return compact(parsed)
	}
	// tolerate plain comma-separated values
	return compact(strings.Split(raw, ","))
}

func compact(items []string) []string {
	var out []string
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseInt(raw string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(raw))
}

func githubProfile(raw string) string {
	if raw == "" {
		return ""
	}
	var profiles map[string]string
	if err := json.Unmarshal([]byte(raw), &profiles); err != nil {
		return ""
	}
	return profiles["github"]
}

func mergeRepos(existing, discovered []string) []string {
	seen := map[string]bool{}
	for _, repo := range existing {
		seen[strings.ToLower(repo)] = true
	}
	out := existing
	for _, repo := range discovered {
		if !seen[strings.ToLower(repo)] {
			out = append(out, repo)
			seen[strings.ToLower(repo)] = true
		}
	}
	return out
}
