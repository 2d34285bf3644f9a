// Package sources implements the YouTube transcript sources behind transcript.Fetcher.
//
// The implementation is split across files by responsibility:
//
//	youtube_innertube.go: Innertube constants, wire types, low-level HTTP primitives
//	youtube_transcript.go: primary source, caption tracks from the watch page, the WEB
//	engagement panel (default track only) or the ANDROID player
//	youtube_timedtext.go: secondary source, direct caption endpoint, XML parsing
package sources

import (
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_edunote/internal/engine"
)

// DefaultBaseURL is the YouTube origin used when YouTubeConfig.BaseURL is empty.
const DefaultBaseURL = "https://www.youtube.com"

// YouTubeConfig configures both transcript sources.
type YouTubeConfig struct {
	BaseURL    string               // origin for watch, player and timedtext requests
	HTTPClient *http.Client         // required
	Browser    *engine.BrowserClient // optional TLS-fingerprinted client for the watch page
	Retry      engine.RetryConfig
	MaxBody    int64 // caption body cap; 0 = 2 MiB
}

func (c YouTubeConfig) base() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

func (c YouTubeConfig) maxBody() int64 {
	if c.MaxBody <= 0 {
		return 2 << 20
	}
	return c.MaxBody
}
