// Package humanize strips generic-AI phrasing from generated drafts. The
// pattern list follows Wikipedia's "signs of AI writing" plus house additions.
package humanize

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

// Transformer rewrites style only; it must never restructure factual claims.
type Transformer interface {
	Humanize(ctx context.Context, text string, voice *types.VoiceProfile) (string, error)
}

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

var slopRules = compileRules([][2]string{
	{`(?i)\bexcited to (?:share|announce)\b`, ""},
	{`(?i)\bgame[- ]?changer\b`, "significant"},
	{`(?i)\bleverage\b`, "use"},
	{`(?i)\bsynergy\b`, "overlap"},
	{`(?i)\bthrilled\b`, "glad"},
	{`(?i)\bcomprehensive\b`, "full"},
	{`(?i)\brobust\b`, "solid"},
	{`(?i)\bseamless(?:ly)?\b`, "smooth"},
	{`(?i)\btransformative\b`, "meaningful"},
	{`(?i)\binnovative\b`, "new"},
	{`(?i)\bcutting[- ]?edge\b`, "modern"},
	{`(?i)\bstate[- ]?of[- ]?the[- ]?art\b`, "current"},
	{`(?i)\bunlock(?:ing)?\b`, "enable"},
	{`(?i)\bempower(?:ing|s)?\b`, "help"},
	{`(?i)\bdelve\b`, "dig"},
	{`(?i)\btapestry\b`, "mix"},
	{`(?i)\blandscape\b`, "space"},
	{`(?i)\bparadigm\b`, "model"},
	{`(?i)\bholistic\b`, "complete"},
	{`(?i)\bin today'?s (?:fast[- ]?paced|rapidly evolving|digital)\b`, ""},
	{`(?i)\bIt'?s worth noting that\b`, ""},
	{`(?i)\bIt'?s important to (?:note|remember) that\b`, ""},
	{`(?i)\bIn conclusion\b`, ""},
})

var structuralRules = compileRules([][2]string{
	{`!{3,}`, "!"},
	{` — (?:and|but|so|yet) — `, " — "},
	{`\bLet'?s (?:dive|jump|get) (?:in|into|started)[.!]?\s*`, ""},
	{`\b[Ww]ithout further ado[,.]?\s*`, ""},
})

var (
	doubleSpaceRe = regexp.MustCompile(`  +`)
	blankRunsRe   = regexp.MustCompile(`\n\s*\n\s*\n`)
)

func compileRules(specs [][2]string) []rule {
	out := make([]rule, 0, len(specs))
	for _, spec := range specs {
		out = append(out, rule{pattern: regexp.MustCompile(spec[0]), replacement: spec[1]})
	}
	return out
}

type patternTransformer struct {
	log *logger.Logger
}

func NewTransformer(baseLog *logger.Logger) Transformer {
	return &patternTransformer{log: baseLog.With("service", "Humanizer")}
}

func (t *patternTransformer) Humanize(_ context.Context, text string, voice *types.VoiceProfile) (string, error) {
	result := text
	for _, r := range slopRules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	for _, r := range structuralRules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	for _, r := range neverSayRules(voice) {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}

	result = doubleSpaceRe.ReplaceAllString(result, " ")
	result = blankRunsRe.ReplaceAllString(result, "\n\n")
	lines := strings.Split(result, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// neverSayRules turns the org's banned phrases into removal patterns.
func neverSayRules(voice *types.VoiceProfile) []rule {
	if voice == nil || len(voice.NeverSay) == 0 {
		return nil
	}
	var phrases []string
	if err := json.Unmarshal(voice.NeverSay, &phrases); err != nil {
		return nil
	}
	var out []rule
	for _, phrase := range phrases {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		out = append(out, rule{
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`),
		})
	}
	return out
}
