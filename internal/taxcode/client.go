package taxcode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taxcore/internal/model"
	"taxcore/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.vietqr.io/v2"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Client calls the public business registry. It is safe for concurrent use.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outbound calls per second. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger.OrNop(l) }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// registry response envelope, e.g. {"code":"00","desc":"Success","data":{...}}
type envelope struct {
	Code statusCode    `json:"code"`
	Desc string        `json:"desc"`
	Data *registryData `json:"data"`
}

type registryData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	Address   string `json:"address"`
}

// statusCode accepts both "00" and 0.
type statusCode string

func (s *statusCode) UnmarshalJSON(b []byte) error {
	*s = statusCode(strings.Trim(string(b), `"`))
	return nil
}

func (s statusCode) ok() bool {
	switch s {
	case "00", "0", "200":
		return true
	}
	return false
}

// Lookup validates the code format, then makes one registry call bounded by the
// client timeout. Failures come back as Success=false with a reason.
func (c *Client) Lookup(ctx context.Context, raw string) LookupResult {
	code, err := ValidateFormat(raw)
	if err != nil {
		return failure(raw, model.SourceLive, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return failure(code, model.SourceLive, fmt.Sprintf("registry rate limit: %v", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/business/"+code, nil)
	if err != nil {
		return failure(code, model.SourceLive, fmt.Sprintf("failed to build registry request: %v", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Tax registry request failed",
			zap.String("tax_code", code),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return failure(code, model.SourceLive, fmt.Sprintf("registry request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		res := failure(code, model.SourceLive, fmt.Sprintf("tax code %s is not registered", code))
		res.NotRegistered = true
		return res
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Tax registry returned non-2xx status",
			zap.String("tax_code", code),
			zap.Int("status", resp.StatusCode))
		return failure(code, model.SourceLive, fmt.Sprintf("registry returned status %d", resp.StatusCode))
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		return failure(code, model.SourceLive, fmt.Sprintf("failed to decode registry response: %v", err))
	}
	if !env.Code.ok() || env.Data == nil || env.Data.Name == "" {
		reason := env.Desc
		if reason == "" {
			reason = "no registration data"
		}
		res := failure(code, model.SourceLive, fmt.Sprintf("tax code %s is not registered: %s", code, reason))
		res.NotRegistered = true
		return res
	}

	return LookupResult{
		Success:   true,
		TaxCode:   code,
		Name:      env.Data.Name,
		ShortName: env.Data.ShortName,
		Address:   env.Data.Address,
		Source:    model.SourceLive,
	}
}
