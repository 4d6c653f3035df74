package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
)

type channelPrompt struct {
	rules          string
	headlinePrefix string
}

var channelPrompts = map[types.Channel]channelPrompt{
	types.ChannelLinkedIn: {
		headlinePrefix: "LINKEDIN",
		rules: `Generate a LinkedIn post.
Rules:
- 150-300 words max
- Hook in first line (pattern interrupt, bold claim, or question)
- No hashtags unless they're genuinely useful (max 3)
- End with a thought or question, not a CTA
- Write like a human engineer sharing what they built, not a marketer
- No bullet-point listicles unless the content genuinely demands it`,
	},
	types.ChannelXThread: {
		headlinePrefix: "X THREAD",
		rules: `Generate an X/Twitter thread (5-8 tweets).
Rules:
- Tweet 1 is the hook, it must stand alone and stop the scroll
- Each tweet under 280 characters
- Number them 1/, 2/, etc.
- Last tweet: takeaway or link
- Conversational, not performative
- No "thread" emoji opener`,
	},
	types.ChannelFacebook: {
		headlinePrefix: "FACEBOOK",
		rules: `Generate a Facebook page post.
Rules:
- 100-250 words
- Plain, friendly language for a broader audience than the engineering channels
- One idea per post, link at the end if relevant
- No hashtag walls`,
	},
	types.ChannelBlog: {
		headlinePrefix: "BLOG DRAFT",
		rules: `Generate a blog post draft.
Rules:
- 800-1500 words
- SEO-aware title (include primary keyword naturally)
- H2 subheadings every 200-300 words
- Technical depth, code snippets where relevant
- No fluff intro paragraphs. Start with the point.
- End with what's next, not a generic conclusion`,
	},
	types.ChannelReleaseEmail: {
		headlinePrefix: "RELEASE EMAIL",
		rules: `Generate a release announcement email.
Rules:
- Subject line that gets opened (not clickbait, just clear value)
- 200-400 words
- What shipped, why it matters, how to use it
- One clear CTA
- Plain text feel, not HTML newsletter energy`,
	},
	types.ChannelNewsletter: {
		headlinePrefix: "NEWSLETTER",
		rules: `Generate a developer newsletter section.
Rules:
- 300-500 words
- "This week in [product]" format
- What shipped, what's coming, one community highlight
- Links to docs/blog where relevant
- Casual, informative, not salesy`,
	},
	types.ChannelYTScript: {
		headlinePrefix: "YT SCRIPT",
		rules: `Generate a YouTube video script (teleprompter-ready).
Rules:
- 2-4 minutes when read aloud (~300-600 words)
- Open with the hook (what you'll learn / why this matters)
- Conversational, written for speaking not reading
- Include [B-ROLL: description] markers for visual cuts
- End with a clear next step`,
	},
}

const briefSystemPrompt = `You are the wire editor at a newsroom-style content desk. You receive the day's signals (releases, trends, community posts, support patterns) and synthesize them into a daily brief.

Output format:
SUMMARY: 2-3 sentence overview of what's happening today.
ANGLE: The single strongest content angle for today (one sentence).
TOP SIGNALS: Ranked list of the 3-5 most actionable signals with one-line reasoning.`

// buildSystemPrompt layers the channel rules over the org's voice profile and
// an optional "post as" author persona.
func buildSystemPrompt(channel types.Channel, voice *types.VoiceProfile, author string) (string, error) {
	prompt, ok := channelPrompts[channel]
	if !ok {
		return "", fmt.Errorf("no prompt configured for channel %q", channel)
	}
	var b strings.Builder
	b.WriteString("You are a content engine for a marketing pressroom. ")
	b.WriteString(prompt.rules)
	if voiceBlock := renderVoice(voice, channel); voiceBlock != "" {
		b.WriteString("\n\nVoice profile:\n")
		b.WriteString(voiceBlock)
	}
	if author != "" && author != "company" {
		fmt.Fprintf(&b, "\n\nWrite in the first-person voice of %s, not the company account.", author)
	}
	return b.String(), nil
}

func renderVoice(voice *types.VoiceProfile, channel types.Channel) string {
	if voice == nil {
		return ""
	}
	var parts []string
	if voice.Persona != "" {
		parts = append(parts, "Voice: "+voice.Persona)
	}
	if voice.Audience != "" {
		parts = append(parts, "Audience: "+voice.Audience)
	}
	if voice.Tone != "" {
		parts = append(parts, "Tone: "+voice.Tone)
	}
	if list := jsonList(voice.NeverSay); len(list) > 0 {
		parts = append(parts, "Never say: "+strings.Join(quoteAll(list), ", "))
	}
	if list := jsonList(voice.AlwaysDo); len(list) > 0 {
		parts = append(parts, "Always: "+strings.Join(list, "; "))
	}
	if list := jsonList(voice.BrandKeywords); len(list) > 0 {
		parts = append(parts, "Brand keywords: "+strings.Join(list, ", "))
	}
	if style := channelStyle(voice, channel); style != "" {
		parts = append(parts, "Channel style: "+style)
	}
	if examples := jsonList(voice.WritingExamples); len(examples) > 0 {
		capped := examples
		if len(capped) > 2 {
			capped = capped[:2]
		}
		parts = append(parts, "Writing examples:\n"+strings.Join(capped, "\n---\n"))
	}
	return strings.Join(parts, "\n")
}

func channelStyle(voice *types.VoiceProfile, channel types.Channel) string {
	if len(voice.ChannelStyles) == 0 {
		return ""
	}
	var styles map[string]string
	if err := json.Unmarshal(voice.ChannelStyles, &styles); err != nil {
		return ""
	}
	return styles[string(channel)]
}

func jsonList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

func quoteAll(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fmt.Sprintf("%q", item)
	}
	return out
}
