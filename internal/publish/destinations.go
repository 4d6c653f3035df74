package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
)

// Destination is a thin per-channel publishing adapter. Credentials come from
// the org's resolved settings; the adapter never stores them.
type Destination interface {
	Channel() types.Channel
	Publish(ctx context.Context, item *types.Content, settings map[string]string) (*Result, error)
}

// Result is what a destination reports back on success.
type Result struct {
	Destination string `json:"destination"`
	ExternalID  string `json:"external_id,omitempty"`
	Note        string `json:"note,omitempty"`
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

type linkedIn struct {
	client *http.Client
}

func NewLinkedIn() Destination { return &linkedIn{client: newHTTPClient()} }

func (l *linkedIn) Channel() types.Channel { return types.ChannelLinkedIn }

func (l *linkedIn) Publish(ctx context.Context, item *types.Content, settings map[string]string) (*Result, error) {
	token := settings["publish.linkedin_token"]
	author := settings["publish.linkedin_author_urn"]
	if token == "" || author == "" {
		return nil, fmt.Errorf("linkedin: %w: not connected, authorize in connections", pkgerrors.ErrNotConfigured)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"author":     author,
		"commentary": item.Body,
		"visibility": "PUBLIC",
		"distribution": map[string]interface{}{
			"feedDistribution":               "MAIN_FEED",
			"targetEntities":                 []string{},
			"thirdPartyDistributionChannels": []string{},
		},
		"lifecycleState": "PUBLISHED",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.linkedin.com/rest/posts", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("LinkedIn-Version", "202402")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("linkedin: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("linkedin: status %d: %s", resp.StatusCode, string(body))
	}

	postID := resp.Header.Get("x-restli-id")
	if postID == "" {
		postID = resp.Header.Get("x-linkedin-id")
	}
	return &Result{Destination: "linkedin", ExternalID: postID}, nil
}

type facebook struct {
	client *http.Client
}

func NewFacebook() Destination { return &facebook{client: newHTTPClient()} }

func (f *facebook) Channel() types.Channel { return types.ChannelFacebook }

func (f *facebook) Publish(ctx context.Context, item *types.Content, settings map[string]string) (*Result, error) {
	pageToken := settings["publish.facebook_page_token"]
	pageID := settings["publish.facebook_page_id"]
	if pageToken == "" || pageID == "" {
		return nil, fmt.Errorf("facebook: %w: not connected, authorize in connections", pkgerrors.ErrNotConfigured)
	}

	form := url.Values{}
	form.Set("message", item.Body)
	form.Set("access_token", pageToken)

	endpoint := fmt.Sprintf("https://graph.facebook.com/v19.0/%s/feed", pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("facebook: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("facebook: parse response: %w", err)
	}
	return &Result{Destination: "facebook", ExternalID: parsed.ID}, nil
}
