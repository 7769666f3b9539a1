package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	"github.com/Digital-Shane/omdb"
	"github.com/rs/zerolog"
)

const providerName = "omdb"

// Provider is the OMDb catalog. OMDb only serves English titles and keys
// shows by IMDb id, which is exposed as the numeric part of "tt1234567".
type Provider struct {
	client     *omdb.Client
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     zerolog.Logger
}

// New creates an OMDb catalog. A nil httpClient uses a 10s timeout client.
func New(apiKey string, httpClient *http.Client, logger zerolog.Logger) (*Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &provider.ProviderError{Provider: providerName, Code: provider.CodeAuthFailed, Message: "OMDb api key is required"}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Provider{
		client:     omdb.NewClient(apiKey, httpClient),
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    omdb.DefaultURL,
		logger:     logger.With().Str("component", "catalog").Str("catalog", providerName).Logger(),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Languages returns the languages this catalog answers in.
func (p *Provider) Languages() []core.Language {
	return []core.Language{core.English}
}

func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "invalid api key"), strings.Contains(lower, "missing omdb api key"), strings.Contains(lower, "no api key"):
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeAuthFailed,
			Message:  "OMDb authentication failed: " + msg,
			Err:      err,
		}
	case strings.Contains(lower, "not found"):
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeNotFound,
			Message:  msg,
			Err:      err,
		}
	case strings.Contains(lower, "limit reached"), strings.Contains(lower, "too many requests"):
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeRateLimited,
			Message:    msg,
			Retry:      true,
			RetryAfter: 5,
			Err:        err,
		}
	default:
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeUnknown,
			Message:  msg,
			Err:      err,
		}
	}
}

// buildRequest constructs an HTTP request with common parameters applied.
func (p *Provider) buildRequest(ctx context.Context, params map[string]string) (*http.Request, error) {
	values := url.Values{}
	for k, v := range params {
		if v == "" {
			continue
		}
		values.Set(k, v)
	}
	values.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = values.Encode()
	return req, nil
}

// apiResponse is the envelope every OMDb answer carries.
type apiResponse struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

func (r apiResponse) err() error {
	if strings.EqualFold(r.Response, "false") {
		if r.Error == "" {
			return errors.New("unknown OMDb error")
		}
		return errors.New(r.Error)
	}
	return nil
}

// getJSON performs a raw OMDb query and decodes the answer into out.
func (p *Provider) getJSON(ctx context.Context, params map[string]string, out any) error {
	req, err := p.buildRequest(ctx, params)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return p.mapError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return p.mapError(fmt.Errorf("invalid api key (status %d)", resp.StatusCode))
	case resp.StatusCode >= 500:
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeUnavailable,
			Message:    fmt.Sprintf("OMDb unavailable (status %d)", resp.StatusCode),
			Retry:      true,
			RetryAfter: 30,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return p.mapError(fmt.Errorf("decode OMDb response: %w", err))
	}
	return nil
}

// imdbID formats a numeric show id as an IMDb id.
func imdbID(id int) string {
	return fmt.Sprintf("tt%07d", id)
}

// parseIMDbID returns the numeric part of an IMDb id, or 0.
func parseIMDbID(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(id), "tt"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// available returns v unless OMDb marked it "N/A".
func available(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "N/A") {
		return ""
	}
	return v
}
