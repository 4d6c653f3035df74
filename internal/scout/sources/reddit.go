package sources

import (
	"context"
	"fmt"
	"net/http"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
)

const redditUserAgent = "pressroom/0.1"

type reddit struct {
	client     *http.Client
	subreddits []string
}

func NewReddit(subreddits []string) Adapter {
	return &reddit{client: newHTTPClient(), subreddits: subreddits}
}

func (r *reddit) Name() string { return "reddit" }

func (r *reddit) Fetch(ctx context.Context) ([]*Candidate, error) {
	var out []*Candidate
	var lastErr error
	for _, sub := range r.subreddits {
		var listing struct {
			Data struct {
				Children []struct {
					Data struct {
						Title     string `json:"title"`
						SelfText  string `json:"selftext"`
						Permalink string `json:"permalink"`
						Stickied  bool   `json:"stickied"`
					} `json:"data"`
				} `json:"children"`
			} `json:"data"`
		}
		url := fmt.Sprintf("https://www.reddit.com/r/%s/hot.json?limit=10", sub)
		if err := getJSON(ctx, r.client, url, map[string]string{"User-Agent": redditUserAgent}, &listing); err != nil {
			lastErr = err
			continue
		}
		for _, post := range listing.Data.Children {
			p := post.Data
			if p.Stickied {
				continue
			}
			out = append(out, &Candidate{
				Type:   types.SignalTypeReddit,
				Source: "r/" + sub,
				Title:  p.Title,
				Body:   clip(p.SelfText, 1000),
				URL:    "https://reddit.com" + p.Permalink,
				Raw:    rawJSON(p),
			})
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
