package domain

import (
	"fmt"

	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
)

// SignalType discriminates which source adapter produced a signal. Source
// specific payload fields never leak past the adapter boundary; anything not
// covered by the normalized columns lives in Signal.Raw.
type SignalType string

const (
	SignalTypeGitHubRelease SignalType = "github_release"
	SignalTypeGitHubCommit  SignalType = "github_commit"
	SignalTypeHackerNews    SignalType = "hackernews"
	SignalTypeReddit        SignalType = "reddit"
	SignalTypeRSS           SignalType = "rss"
	SignalTypeWebSearch     SignalType = "web_search"
)

var AllSignalTypes = []SignalType{
	SignalTypeGitHubRelease,
	SignalTypeGitHubCommit,
	SignalTypeHackerNews,
	SignalTypeReddit,
	SignalTypeRSS,
	SignalTypeWebSearch,
}

func ParseSignalType(s string) (SignalType, error) {
	t := SignalType(s)
	for _, known := range AllSignalTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown signal type %q", pkgerrors.ErrInvalidArgument, s)
}

type Channel string

const (
	ChannelLinkedIn     Channel = "linkedin"
	ChannelXThread      Channel = "x_thread"
	ChannelFacebook     Channel = "facebook"
	ChannelBlog         Channel = "blog"
	ChannelReleaseEmail Channel = "release_email"
	ChannelNewsletter   Channel = "newsletter"
	ChannelYTScript     Channel = "yt_script"
)

// AllChannels in display order.
var AllChannels = []Channel{
	ChannelLinkedIn,
	ChannelXThread,
	ChannelFacebook,
	ChannelBlog,
	ChannelReleaseEmail,
	ChannelNewsletter,
	ChannelYTScript,
}

func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	for _, known := range AllChannels {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown channel %q", pkgerrors.ErrInvalidArgument, s)
}

type ContentStatus string

const (
	ContentStatusQueued    ContentStatus = "queued"
	ContentStatusApproved  ContentStatus = "approved"
	ContentStatusSpiked    ContentStatus = "spiked"
	ContentStatusPublished ContentStatus = "published"
)

type StoryStatus string

const (
	StoryStatusDraft      StoryStatus = "draft"
	StoryStatusGenerating StoryStatus = "generating"
	StoryStatusComplete   StoryStatus = "complete"
)
