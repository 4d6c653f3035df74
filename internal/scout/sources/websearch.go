package sources

import (
	"context"
	"fmt"
	"net/url"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
)

const (
	braveSearchURL  = "https://api.search.brave.com/res/v1/web/search"
	resultsPerQuery = 5
)

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SearchWeb runs one query against the Brave Search API and normalizes the
// hits. Used by the web_search adapter and by story discovery.
func SearchWeb(ctx context.Context, apiKey, query string, count int) ([]*Candidate, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("web search: missing api key")
	}
	if count <= 0 {
		count = resultsPerQuery
	}
	client := newHTTPClient()
	var result struct {
		Web struct {
			Results []braveResult `json:"results"`
		} `json:"web"`
	}
	reqURL := fmt.Sprintf("%s?q=%s&count=%d", braveSearchURL, url.QueryEscape(query), count)
	headers := map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": apiKey,
	}
	if err := getJSON(ctx, client, reqURL, headers, &result); err != nil {
		return nil, err
	}

	var out []*Candidate
	for _, hit := range result.Web.Results {
		if hit.Title == "" || hit.URL == "" {
			continue
		}
		out = append(out, &Candidate{
			Type:   types.SignalTypeWebSearch,
			Source: "web:" + query,
			Title:  hit.Title,
			Body:   clip(hit.Description, 1000),
			URL:    hit.URL,
			Raw:    rawJSON(hit),
		})
	}
	return out, nil
}

type webSearch struct {
	apiKey  string
	queries []string
}

func NewWebSearch(apiKey string, queries []string) Adapter {
	return &webSearch{apiKey: apiKey, queries: queries}
}

func (w *webSearch) Name() string { return "web_search" }

func (w *webSearch) Fetch(ctx context.Context) ([]*Candidate, error) {
	var out []*Candidate
	var lastErr error
	for _, query := range w.queries {
		hits, err := SearchWeb(ctx, w.apiKey, query, resultsPerQuery)
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, hits...)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
