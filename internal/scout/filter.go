package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pressroomhq/pressroom-backend/internal/scout/sources"
)

const filterSystemPrompt = "Strict relevance filter. Return valid JSON array only."

// filterRelevant drops candidates an org's audience would not care about.
// It fails open: any model error keeps the whole batch, and an empty verdict
// is treated as a model mistake rather than grounds to discard everything.
func (s *service) filterRelevant(ctx context.Context, candidates []*sources.Candidate, companyContext string) []*sources.Candidate {
	if len(candidates) <= 3 || companyContext == "" {
		return candidates
	}

	response, err := s.llm.GenerateTextFast(ctx, filterSystemPrompt, relevancePrompt(candidates, companyContext))
	if err != nil {
		s.log.Warn("relevance filter failed, keeping all candidates", "error", err.Error())
		return candidates
	}

	keep, err := parseVerdicts(response)
	if err != nil {
		s.log.Warn("relevance filter returned unparseable verdicts, keeping all candidates", "error", err.Error())
		return candidates
	}

	var filtered []*sources.Candidate
	for i, candidate := range candidates {
		if keep[i] {
			filtered = append(filtered, candidate)
		}
	}
	if len(filtered) == 0 {
		return candidates
	}
	if dropped := len(candidates) - len(filtered); dropped > 0 {
		s.log.Info("relevance filter applied", "kept", len(filtered), "dropped", dropped)
	}
	return filtered
}

func relevancePrompt(candidates []*sources.Candidate, companyContext string) string {
	var list strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&list, "%d. [%s] %s: %s\n", i, c.Type, c.Source, c.Title)
		if preview := strings.ReplaceAll(clipString(c.Body, 100), "\n", " "); preview != "" {
			fmt.Fprintf(&list, "   %s\n", preview)
		}
	}

	return fmt.Sprintf(`Rate each signal for relevance to this company's content engine.

COMPANY:
%s

SIGNALS:
%s
Return ONLY a JSON array:
[{"i": 0, "r": true}, {"i": 1, "r": false}, ...]

Rules:
- r=true if the signal could inspire content this company's audience cares about
- r=false if off-topic, about unrelated software/tools, or generic noise
- The company's own GitHub repos and releases are ALWAYS relevant
- Be strict. Quality over quantity.`, companyContext, list.String())
}

type verdict struct {
	Index    int  `json:"i"`
	Relevant bool `json:"r"`
}

func parseVerdicts(response string) (map[int]bool, error) {
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
		return nil, fmt.Errorf("no JSON array in response")
	}

	var verdicts []verdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &verdicts); err != nil {
		return nil, err
	}
	keep := make(map[int]bool, len(verdicts))
	for _, v := range verdicts {
		if v.Relevant {
			keep[v.Index] = true
		}
	}
	return keep, nil
}

func clipString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
