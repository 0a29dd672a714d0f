package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
	"github.com/custodia-labs/intunesync/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.DeviceClient = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultPageSize = 500
	maxPages        = 10000
)

// Config holds configuration for the Graph client.
type Config struct {
	// BaseURL is the Graph API root (default: https://graph.microsoft.com/v1.0).
	BaseURL string

	// HTTPClient must attach bearer tokens, typically an oauth2 client.
	HTTPClient *http.Client

	// PageSize is the $top value for listings (default: 500).
	PageSize int

	// UserAgent is sent with every request when set.
	UserAgent string
}

// Client talks to the managedDevices endpoints.
type Client struct {
	http      *http.Client
	baseURL   *url.URL
	pageSize  int
	userAgent string
	throttle  *throttle
	closed    atomic.Bool
}

// NewClient creates a Graph device client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = domain.DefaultGraphBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: graph base URL: %v", domain.ErrConfiguration, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: graph base URL must be http(s): %q", domain.ErrConfiguration, cfg.BaseURL)
	}

	return &Client{
		http:      cfg.HTTPClient,
		baseURL:   base,
		pageSize:  cfg.PageSize,
		userAgent: cfg.UserAgent,
		throttle:  newThrottle(),
	}, nil
}

// Capabilities reports that listings honour DeviceQuery.Tags via $filter.
func (c *Client) Capabilities() driven.ClientCapabilities {
	return driven.ClientCapabilities{SupportsPlatformFilter: true}
}

// ListDevices returns every managed device matching query, following
// @odata.nextLink until the listing is exhausted.
func (c *Client) ListDevices(ctx context.Context, query domain.DeviceQuery) ([]domain.Device, error) {
	next := c.listURL(query)
	var devices []domain.Device

	for page := 0; next != ""; page++ {
		if page >= maxPages {
			return nil, domain.NewTransportError("list devices", fmt.Errorf("more than %d pages", maxPages))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var body devicePage
		if err := c.getJSON(ctx, next, &body); err != nil {
			return nil, domain.NewTransportError("list devices", err)
		}
		for _, d := range body.Value {
			devices = append(devices, d.toDomain())
		}

		next = body.NextLink
		if next != "" {
			if err := c.checkNextLink(next); err != nil {
				return nil, domain.NewTransportError("list devices", err)
			}
		}
	}

	logger.Debug("graph: listed %d devices", len(devices))
	return devices, nil
}

// TriggerSync posts the syncDevice action for deviceID.
// The server accepts the request with 204; completion happens on the device.
func (c *Client) TriggerSync(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return domain.NewTransportError("sync device", fmt.Errorf("empty device id"))
	}
	endpoint := c.endpoint("deviceManagement", "managedDevices", deviceID, "syncDevice")

	resp, err := c.do(ctx, http.MethodPost, endpoint)
	if err != nil {
		return domain.NewTransportError("sync device", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close releases idle connections. Later calls fail with domain.ErrSessionClosed.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) listURL(query domain.DeviceQuery) string {
	params := url.Values{}
	params.Set("$select", managedDeviceFields)
	params.Set("$top", strconv.Itoa(c.pageSize))
	if f := platformFilter(query.Tags); f != "" {
		params.Set("$filter", f)
	}
	return c.endpoint("deviceManagement", "managedDevices") + "?" + params.Encode()
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.TrimRight(c.baseURL.String(), "/") + "/" + strings.Join(escaped, "/")
}

// checkNextLink keeps pagination on the configured host so the bearer
// token is never sent elsewhere.
func (c *Client) checkNextLink(next string) error {
	u, err := url.Parse(next)
	if err != nil {
		return fmt.Errorf("invalid next link: %w", err)
	}
	if !strings.EqualFold(u.Host, c.baseURL.Host) || u.Scheme != c.baseURL.Scheme {
		return fmt.Errorf("next link points to unexpected host %q", u.Host)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends one request and converts non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, method, endpoint string) (*http.Response, error) {
	if c.closed.Load() {
		return nil, domain.ErrSessionClosed
	}
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := newAPIError(resp)
		if apiErr.StatusCode == http.StatusTooManyRequests ||
			(apiErr.StatusCode == http.StatusServiceUnavailable && apiErr.RetryAfter > 0) {
			c.throttle.Record(apiErr.RetryAfter)
			logger.Warn("graph: throttled, next request delayed %s", c.throttle.Until().Round(time.Second))
		}
		return nil, apiErr
	}
	return resp, nil
}

// platformFilter builds an OData filter matching any of tags.
func platformFilter(tags []string) string {
	clauses := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("operatingSystem eq '%s'", strings.ReplaceAll(t, "'", "''")))
	}
	return strings.Join(clauses, " or ")
}
