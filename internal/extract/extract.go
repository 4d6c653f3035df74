// Package extract pulls the readable article out of a web page and renders
// it as markdown, for enriching a signal beyond its feed-level summary.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
)

const (
	maxFetchBytes  = 2 << 20
	maxMarkdownLen = 12000
	userAgent      = "Mozilla/5.0 (compatible; pressroom/0.1)"
)

var blankRunsRe = regexp.MustCompile(`\n{4,}`)

// Article is the extracted, markdown-rendered content of a page.
type Article struct {
	Title    string `json:"title"`
	SiteName string `json:"site_name,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Markdown string `json:"markdown"`
}

type Extractor interface {
	FromURL(ctx context.Context, pageURL string) (*Article, error)
}

type extractor struct {
	client    *http.Client
	converter *md.Converter
}

func NewExtractor() Extractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &extractor{
		client:    &http.Client{Timeout: 20 * time.Second},
		converter: converter,
	}
}

func (e *extractor) FromURL(ctx context.Context, pageURL string) (*Article, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("extract: %w: not a fetchable url: %s", pkgerrors.ErrInvalidArgument, pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("extract: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract: fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extract: fetch %s: status %d", pageURL, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("extract: read %s: %w", pageURL, err)
	}

	article, err := readability.FromReader(strings.NewReader(string(raw)), parsed)
	if err != nil {
		return nil, fmt.Errorf("extract: readability %s: %w", pageURL, err)
	}

	markdown, err := e.converter.ConvertString(article.Content)
	if err != nil {
		return nil, fmt.Errorf("extract: markdown %s: %w", pageURL, err)
	}
	markdown = cleanMarkdown(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("extract: %s yielded no readable content", pageURL)
	}
	if len(markdown) > maxMarkdownLen {
		markdown = markdown[:maxMarkdownLen]
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = htmlTitle(raw)
	}

	return &Article{
		Title:    title,
		SiteName: article.SiteName,
		Excerpt:  strings.TrimSpace(article.Excerpt),
		Markdown: markdown,
	}, nil
}

func cleanMarkdown(content string) string {
	content = blankRunsRe.ReplaceAllString(content, "\n\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// htmlTitle is the fallback when readability finds no title node.
func htmlTitle(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
