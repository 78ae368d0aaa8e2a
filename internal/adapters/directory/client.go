// Package directory implements the channel directory port against an
// external search-style API.
//
// The directory service is a free-text search index, not an exact-match
// lookup: a query may return irrelevant candidates, several, or none. The
// client normalizes the input and applies a deterministic selection policy
// (first candidate by service ranking) instead of trusting a raw hit.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/streamnotify/channel-resolver/config"
	"github.com/streamnotify/channel-resolver/internal/core"
	apperrors "github.com/streamnotify/channel-resolver/internal/errors"
)

// handlePrefix marks a user-facing handle (e.g. "@name").
const handlePrefix = "@"

// Client queries the directory search API and selects candidates.
type Client struct {
	cfg        config.DirectoryConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOptions configure a directory Client.
type ClientOptions struct {
	Config config.DirectoryConfig // Required (APIKey may be absent; see Resolve)
	Logger *slog.Logger           // Optional
	// HTTPClient overrides the default client, mainly for tests. The
	// configured timeout is applied regardless.
	HTTPClient *http.Client
}

// NewClient constructs a directory client. The candidate selection
// expressions are validated here; an invalid expression is a startup
// error, not a per-job one.
func NewClient(opts ClientOptions) (*Client, error) {
	if _, err := jmespath.Compile(opts.Config.ChannelIDExpr); err != nil {
		return nil, fmt.Errorf("compile channel ID expression: %w", err)
	}
	if _, err := jmespath.Compile(opts.Config.ChannelNameExpr); err != nil {
		return nil, fmt.Errorf("compile channel name expression: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:        opts.Config,
		httpClient: httpClient,
		logger:     logger.With("component", "directory_client"),
	}, nil
}

var _ core.ChannelDirectory = (*Client)(nil)

// Resolve looks up channelInput against the directory.
//
// A handle-prefixed input is queried bare first; if that returns nothing,
// the original unstripped input is tried once, covering directories that
// index the literal "@name" string. Transport errors propagate unretried;
// the same query is never issued twice.
func (c *Client) Resolve(ctx context.Context, channelInput string) (core.Resolution, error) {
	input := strings.TrimSpace(channelInput)
	if input == "" {
		return core.Resolution{}, apperrors.Validation("channel input is empty")
	}
	if !c.cfg.HasAPIKey() {
		return core.Resolution{}, apperrors.Configuration("directory API key is not configured")
	}

	term := input
	prefixStripped := false
	if strings.HasPrefix(input, handlePrefix) {
		term = strings.TrimPrefix(input, handlePrefix)
		prefixStripped = term != ""
		if !prefixStripped {
			term = input
		}
	}

	res, found, err := c.search(ctx, term)
	if err != nil {
		return core.Resolution{}, err
	}
	if found {
		return res, nil
	}

	if prefixStripped {
		res, found, err = c.search(ctx, input)
		if err != nil {
			return core.Resolution{}, err
		}
		if found {
			c.logger.DebugContext(ctx, "resolved via fallback query", "input", input)
			return res, nil
		}
	}

	return core.Resolution{}, fmt.Errorf("%w: %q", core.ErrChannelNotFound, input)
}

// search issues one query and extracts the first candidate. The second
// return value distinguishes "no candidate" from a transport fault.
func (c *Client) search(ctx context.Context, term string) (core.Resolution, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(term), nil)
	if err != nil {
		return core.Resolution{}, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build directory request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Resolution{}, false, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "directory search failed")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("close directory response body", "error", cerr)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return core.Resolution{}, false, apperrors.Wrapf(
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			apperrors.ErrCodeUnavailable,
			"directory search returned non-success",
		)
	}

	var body any
	if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr != nil {
		return core.Resolution{}, false, apperrors.Wrap(decodeErr, apperrors.ErrCodeUnavailable, "decode directory response")
	}

	return c.selectCandidate(body)
}

// searchURL builds the query URL. The term is percent-encoded via
// url.Values; the credential travels as a query parameter and is never logged.
func (c *Client) searchURL(term string) string {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "channel")
	q.Set("maxResults", strconv.Itoa(c.cfg.MaxResults))
	q.Set("q", term)
	q.Set("key", c.cfg.APIKey)
	return c.cfg.BaseURL + "/search?" + q.Encode()
}

// selectCandidate applies the configured JMESPath expressions to the
// response. An empty candidate list and a missing field both read as "no
// candidate", never as an error.
func (c *Client) selectCandidate(body any) (core.Resolution, bool, error) {
	idVal, err := jmespath.Search(c.cfg.ChannelIDExpr, body)
	if err != nil {
		return core.Resolution{}, false, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "extract candidate ID")
	}
	channelID, ok := idVal.(string)
	if !ok || channelID == "" {
		return core.Resolution{}, false, nil
	}

	channelName := ""
	if nameVal, nameErr := jmespath.Search(c.cfg.ChannelNameExpr, body); nameErr == nil {
		if name, isString := nameVal.(string); isString {
			channelName = name
		}
	}

	return core.Resolution{ChannelID: channelID, ChannelName: channelName}, true, nil
}
