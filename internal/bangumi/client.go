package bangumi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"bgmexport/internal/logging"
	"bgmexport/internal/ratelimit"
	"bgmexport/internal/services"
)

const (
	defaultBaseURL         = "https://api.bgm.tv"
	defaultUserAgent       = "bgmexport/dev (https://github.com/bgmexport/bgmexport)"
	defaultHTTPTimeout     = 30 * time.Second
	defaultMaxRetries      = 3
	defaultInitialBackoff  = 2 * time.Second
	defaultMaxBackoff      = 60 * time.Second
	defaultEpisodePageSize = 100
	maxErrorBody           = 4096
)

// Config describes the Bangumi client configuration.
type Config struct {
	Token           string
	BaseURL         string
	UserAgent       string
	Timeout         time.Duration
	MaxRetries      int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	EpisodePageSize int
	Gate            *ratelimit.Gate
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// Client wraps the Bangumi REST API.
type Client struct {
	token           string
	userAgent       string
	baseURL         *url.URL
	timeout         time.Duration
	maxRetries      int
	initialBackoff  time.Duration
	maxBackoff      time.Duration
	episodePageSize int
	gate            *ratelimit.Gate
	http            *http.Client
	logger          *slog.Logger
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "bangumi", "new client", "access token is required", nil)
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("bangumi: parse base url: %w", err)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = defaultInitialBackoff
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff < initialBackoff {
		maxBackoff = max(defaultMaxBackoff, initialBackoff)
	}
	episodePageSize := cfg.EpisodePageSize
	if episodePageSize <= 0 {
		episodePageSize = defaultEpisodePageSize
	}
	gate := cfg.Gate
	if gate == nil {
		gate = ratelimit.New(ratelimit.DefaultInterval)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		token:           token,
		userAgent:       userAgent,
		baseURL:         baseURL,
		timeout:         timeout,
		maxRetries:      maxRetries,
		initialBackoff:  initialBackoff,
		maxBackoff:      maxBackoff,
		episodePageSize: episodePageSize,
		gate:            gate,
		http:            httpClient,
		logger:          logging.NewComponentLogger(cfg.Logger, "bangumi"),
	}, nil
}

// Me returns the account that owns the token.
func (c *Client) Me(ctx context.Context) (User, error) {
	body, err := c.get(ctx, "me", c.baseURL.JoinPath("v0", "me"))
	if err != nil {
		return User{}, err
	}
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return User{}, services.Wrap(services.ErrUnexpectedShape, "bangumi", "me", "decode user", err)
	}
	if user.ID == 0 {
		return User{}, services.Wrap(services.ErrUnexpectedShape, "bangumi", "me", "response has no user id", nil)
	}
	return user, nil
}

// CollectionPage fetches one raw page of the user's collection list.
func (c *Client) CollectionPage(ctx context.Context, username string, limit, offset int) ([]byte, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.New("bangumi: username is required")
	}
	endpoint := c.baseURL.JoinPath("v0", "users", username, "collections")
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	endpoint.RawQuery = params.Encode()
	return c.get(ctx, "collections", endpoint)
}

// SubjectEpisodes fetches every main episode of a subject together with the
// user's mark on it. Pages are assembled in memory so callers see one logical
// response.
func (c *Client) SubjectEpisodes(ctx context.Context, subjectID int64) (EpisodeCollection, error) {
	if subjectID <= 0 {
		return EpisodeCollection{}, errors.New("bangumi: invalid subject id")
	}
	out := EpisodeCollection{SubjectID: subjectID}
	for offset := 0; ; {
		endpoint := c.baseURL.JoinPath("v0", "users", "-", "collections", strconv.FormatInt(subjectID, 10), "episodes")
		params := url.Values{}
		params.Set("episode_type", strconv.Itoa(EpisodeTypeMain))
		params.Set("limit", strconv.Itoa(c.episodePageSize))
		params.Set("offset", strconv.Itoa(offset))
		endpoint.RawQuery = params.Encode()

		body, err := c.get(ctx, "episodes", endpoint)
		if err != nil {
			return EpisodeCollection{}, err
		}
		var page episodePage
		if err := json.Unmarshal(body, &page); err != nil {
			return EpisodeCollection{}, services.Wrap(services.ErrUnexpectedShape, "bangumi", "episodes", "decode episode page", err)
		}
		out.Total = page.Total
		out.Data = append(out.Data, page.Data...)
		offset += len(page.Data)
		if len(page.Data) < c.episodePageSize || offset >= page.Total {
			return out, nil
		}
	}
}

// get performs a GET with retries. Each attempt takes its own turn at the gate.
func (c *Client) get(ctx context.Context, operation string, endpoint *url.URL) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	policy.MaxInterval = c.maxBackoff
	policy.MaxElapsedTime = 0

	var (
		body    []byte
		attempt int
	)
	op := func() error {
		attempt++
		data, err := c.attempt(ctx, operation, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if !IsRetriable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = data
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "bangumi request failed, retrying",
			"request_retry",
			logging.String("operation", operation),
			logging.Int("attempt", attempt),
			logging.Int("max_retries", c.maxRetries),
			logging.Duration("backoff", wait),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "transient network or server trouble; the request will be retried"),
			logging.String(logging.FieldImpact, "export slows down while waiting"),
		)
	}
	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx), notify)
	if err != nil {
		if errors.Is(err, context.Canceled) || (errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil) {
			return nil, err
		}
		if IsRetriable(err) {
			return nil, services.Wrap(services.ErrNetwork, "bangumi", operation, fmt.Sprintf("giving up after %d attempts", attempt), err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) attempt(ctx context.Context, operation string, endpoint *url.URL) ([]byte, error) {
	release, err := c.gate.AwaitTurn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("bangumi: build %s request: %w", operation, err)
	}
	c.applyHeaders(req)

	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("bangumi request", logging.String("operation", operation), logging.String("url", endpoint.String()))
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "bangumi", operation, "request failed", err)
	}
	defer resp.Body.Close()

	logger.Debug("bangumi response",
		logging.String("operation", operation),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, classifyStatus(operation, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(snippet)),
		})
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "bangumi", operation, "read response body", err)
	}
	return data, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
}
