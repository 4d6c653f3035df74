package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
)

const (
	algoliaSearchURL = "https://hn.algolia.com/api/v1/search_by_date"
	firebaseBaseURL  = "https://hacker-news.firebaseio.com/v0"

	maxKeywords     = 8
	hitsPerKeyword  = 5
	topStoriesLimit = 15
)

type hackerNews struct {
	client   *http.Client
	keywords []string
}

// NewHackerNews searches Algolia per keyword; with no keywords it falls back
// to the front page.
func NewHackerNews(keywords []string) Adapter {
	return &hackerNews{client: newHTTPClient(), keywords: keywords}
}

func (h *hackerNews) Name() string { return "hackernews" }

func (h *hackerNews) Fetch(ctx context.Context) ([]*Candidate, error) {
	if len(h.keywords) > 0 {
		return h.search(ctx)
	}
	return h.topStories(ctx)
}

type algoliaHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
}

func (h *hackerNews) search(ctx context.Context) ([]*Candidate, error) {
	keywords := h.keywords
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	seen := map[string]bool{}
	var out []*Candidate
	var lastErr error
	for _, term := range keywords {
		var result struct {
			Hits []algoliaHit `json:"hits"`
		}
		query := fmt.Sprintf("%s?query=%s&tags=story&hitsPerPage=%d",
			algoliaSearchURL, url.QueryEscape(term), hitsPerKeyword)
		if err := getJSON(ctx, h.client, query, nil, &result); err != nil {
			lastErr = err
			continue
		}
		for _, hit := range result.Hits {
			if hit.ObjectID == "" || seen[hit.ObjectID] {
				continue
			}
			seen[hit.ObjectID] = true
			link := hit.URL
			if link == "" {
				link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
			}
			out = append(out, &Candidate{
				Type:   types.SignalTypeHackerNews,
				Source: "hackernews",
				Title:  hit.Title,
				Body:   fmt.Sprintf("Score: %d | Comments: %d | Matched: %q", hit.Points, hit.NumComments, term),
				URL:    link,
				Raw:    rawJSON(hit),
			})
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (h *hackerNews) topStories(ctx context.Context) ([]*Candidate, error) {
	var ids []int64
	if err := getJSON(ctx, h.client, firebaseBaseURL+"/topstories.json", nil, &ids); err != nil {
		return nil, err
	}
	if len(ids) > topStoriesLimit {
		ids = ids[:topStoriesLimit]
	}

	var out []*Candidate
	for _, id := range ids {
		var story struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Score       int    `json:"score"`
			Descendants int    `json:"descendants"`
		}
		itemURL := fmt.Sprintf("%s/item/%d.json", firebaseBaseURL, id)
		if err := getJSON(ctx, h.client, itemURL, nil, &story); err != nil {
			continue
		}
		if story.Title == "" {
			continue
		}
		link := story.URL
		if link == "" {
			link = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", id)
		}
		out = append(out, &Candidate{
			Type:   types.SignalTypeHackerNews,
			Source: "hackernews",
			Title:  story.Title,
			Body:   fmt.Sprintf("Score: %d | Comments: %d", story.Score, story.Descendants),
			URL:    link,
			Raw:    rawJSON(story),
		})
	}
	return out, nil
}
