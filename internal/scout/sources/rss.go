package sources

import (
	"context"

	"github.com/mmcdole/gofeed"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
)

const entriesPerFeed = 5

type rss struct {
	parser *gofeed.Parser
	feeds  []string
}

func NewRSS(feeds []string) Adapter {
	return &rss{parser: gofeed.NewParser(), feeds: feeds}
}

func (r *rss) Name() string { return "rss" }

func (r *rss) Fetch(ctx context.Context) ([]*Candidate, error) {
	var out []*Candidate
	var lastErr error
	for _, feedURL := range r.feeds {
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			lastErr = err
			continue
		}
		source := feed.Title
		if source == "" {
			source = feedURL
		}
		items := feed.Items
		if len(items) > entriesPerFeed {
			items = items[:entriesPerFeed]
		}
		for _, item := range items {
			title := item.Title
			if title == "" {
				title = "Untitled"
			}
			body := item.Description
			if body == "" {
				body = item.Content
			}
			out = append(out, &Candidate{
				Type:   types.SignalTypeRSS,
				Source: source,
				Title:  title,
				Body:   clip(body, 1000),
				URL:    item.Link,
				Raw:    rawJSON(item),
			})
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
