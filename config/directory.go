package config

import (
	"strings"
	"time"
)

// DirectoryConfig contains configuration for the external directory search API
// used to resolve channel handles to canonical channel IDs.
type DirectoryConfig struct {
	// APIKey authenticates search requests. There is no default: a missing
	// key is a configuration error that fails every job without a network call.
	APIKey string `env:"API_KEY"`

	// BaseURL is the root of the directory search API.
	BaseURL string `env:"BASE_URL" envDefault:"https://www.googleapis.com/youtube/v3"`

	// Timeout bounds each search request. A timed-out call is treated like
	// any other transport error; jobs never hang on an unbounded call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`

	// MaxResults caps the candidate list requested per query.
	MaxResults int `env:"MAX_RESULTS" envDefault:"5"`

	// ChannelIDExpr and ChannelNameExpr are JMESPath expressions selecting
	// the first candidate's canonical ID and display name from the search
	// response body. Configurable because directory response shapes differ
	// between deployments.
	ChannelIDExpr   string `env:"CHANNEL_ID_EXPR"   envDefault:"items[0].snippet.channelId"`
	ChannelNameExpr string `env:"CHANNEL_NAME_EXPR" envDefault:"items[0].snippet.title"`
}

// Sanitize applies guardrails to directory configuration values.
func (d *DirectoryConfig) Sanitize() {
	d.APIKey = strings.TrimSpace(d.APIKey)
	d.BaseURL = strings.TrimRight(strings.TrimSpace(d.BaseURL), "/")

	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if d.MaxResults < 1 {
		d.MaxResults = 1
	}
	if d.MaxResults > 50 {
		d.MaxResults = 50
	}
	if strings.TrimSpace(d.ChannelIDExpr) == "" {
		d.ChannelIDExpr = "items[0].snippet.channelId"
	}
	if strings.TrimSpace(d.ChannelNameExpr) == "" {
		d.ChannelNameExpr = "items[0].snippet.title"
	}
}

// HasAPIKey reports whether an API credential is configured.
func (d *DirectoryConfig) HasAPIKey() bool {
	return d.APIKey != ""
}
