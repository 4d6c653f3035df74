// Package sources holds the scout source adapters. Each adapter pulls raw
// items from one external source and normalizes them into Candidates; nothing
// source-specific leaks past this package.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
)

// Candidate is a normalized, not-yet-persisted signal.
type Candidate struct {
	Type   types.SignalType `json:"type"`
	Source string           `json:"source"`
	Title  string           `json:"title"`
	Body   string           `json:"body"`
	URL    string           `json:"url"`
	Raw    json.RawMessage  `json:"raw,omitempty"`
}

// Adapter is one configured source. Fetch returns whatever the source
// currently offers; the caller owns filtering and dedup.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]*Candidate, error)
}

const maxBodyLen = 2000

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func rawJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
