package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
)

const githubAPI = "https://api.github.com"

var githubOwnerRe = regexp.MustCompile(`github\.com/([^/\s?#]+)`)

func githubHeaders(token string) map[string]string {
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if token != "" {
		headers["Authorization"] = "token " + token
	}
	return headers
}

// DiscoverRepos resolves a GitHub profile URL (org or user) into a list of
// "owner/repo" names sorted by most recent push. Archived and disabled repos
// are skipped.
func DiscoverRepos(ctx context.Context, profileURL, token string, maxRepos int) ([]string, error) {
	match := githubOwnerRe.FindStringSubmatch(profileURL)
	if match == nil {
		return nil, fmt.Errorf("not a github profile url: %q", profileURL)
	}
	owner := match[1]
	client := newHTTPClient()

	type repoItem struct {
		FullName string `json:"full_name"`
		Archived bool   `json:"archived"`
		Disabled bool   `json:"disabled"`
	}

	var repos []string
	for _, endpoint := range []string{"orgs/" + owner + "/repos", "users/" + owner + "/repos"} {
		var items []repoItem
		url := fmt.Sprintf("%s/%s?per_page=100&sort=pushed&direction=desc", githubAPI, endpoint)
		if err := getJSON(ctx, client, url, githubHeaders(token), &items); err != nil {
			continue
		}
		for _, item := range items {
			if item.Archived || item.Disabled {
				continue
			}
			repos = append(repos, item.FullName)
		}
		break
	}
	if maxRepos > 0 && len(repos) > maxRepos {
		repos = repos[:maxRepos]
	}
	return repos, nil
}

type githubReleases struct {
	client *http.Client
	repo   string
	token  string
	since  time.Duration
}

func NewGitHubReleases(repo, token string, since time.Duration) Adapter {
	return &githubReleases{client: newHTTPClient(), repo: repo, token: token, since: since}
}

func (g *githubReleases) Name() string { return "github_releases:" + g.repo }

func (g *githubReleases) Fetch(ctx context.Context) ([]*Candidate, error) {
	var releases []struct {
		TagName     string    `json:"tag_name"`
		Name        string    `json:"name"`
		Body        string    `json:"body"`
		HTMLURL     string    `json:"html_url"`
		PublishedAt time.Time `json:"published_at"`
	}
	url := fmt.Sprintf("%s/repos/%s/releases?per_page=10", githubAPI, g.repo)
	if err := getJSON(ctx, g.client, url, githubHeaders(g.token), &releases); err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-g.since)
	var out []*Candidate
	for _, release := range releases {
		if !release.PublishedAt.After(cutoff) {
			continue
		}
		out = append(out, &Candidate{
			Type:   types.SignalTypeGitHubRelease,
			Source: g.repo,
			Title:  fmt.Sprintf("%s %s: %s", g.repo, release.TagName, release.Name),
			Body:   clip(release.Body, maxBodyLen),
			URL:    release.HTMLURL,
			Raw:    rawJSON(release),
		})
	}
	return out, nil
}

type githubCommits struct {
	client *http.Client
	repo   string
	token  string
	since  time.Duration
}

func NewGitHubCommits(repo, token string, since time.Duration) Adapter {
	return &githubCommits{client: newHTTPClient(), repo: repo, token: token, since: since}
}

func (g *githubCommits) Name() string { return "github_commits:" + g.repo }

// Fetch rolls all recent commits on the repo into a single digest candidate;
// one signal per commit would swamp the feed.
func (g *githubCommits) Fetch(ctx context.Context) ([]*Candidate, error) {
	var commits []struct {
		Commit struct {
			Message string `json:"message"`
		} `json:"commit"`
	}
	since := time.Now().Add(-g.since).UTC().Format(time.RFC3339)
	url := fmt.Sprintf("%s/repos/%s/commits?since=%s&per_page=20", githubAPI, g.repo, since)
	if err := getJSON(ctx, g.client, url, githubHeaders(g.token), &commits); err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, nil
	}

	var lines []string
	for _, c := range commits {
		subject, _, _ := strings.Cut(c.Commit.Message, "\n")
		lines = append(lines, "- "+subject)
	}
	sample := commits
	if len(sample) > 5 {
		sample = sample[:5]
	}
	return []*Candidate{{
		Type:   types.SignalTypeGitHubCommit,
		Source: g.repo,
		Title:  fmt.Sprintf("%s: %d new commits", g.repo, len(commits)),
		Body:   clip(strings.Join(lines, "\n"), maxBodyLen),
		URL:    fmt.Sprintf("https://github.com/%s/commits", g.repo),
		Raw:    rawJSON(sample),
	}}, nil
}
