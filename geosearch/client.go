package geosearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/landmarks/landmark"
	"github.com/jonwraymond/landmarks/observe"
	"github.com/jonwraymond/landmarks/resilience"
)

// Defaults for the MediaWiki API.
const (
	DefaultBaseURL   = "https://en.wikipedia.org/w/api.php"
	DefaultUserAgent = "landmarkd/1.0 (https://github.com/jonwraymond/landmarks)"
	DefaultRadius    = 10000
	DefaultLimit     = 50
)

// maxBody bounds how much of a reply is read.
const maxBody = 4 << 20

// Config configures the Client.
type Config struct {
	BaseURL   string
	UserAgent string
	Radius    int
	Limit     int
}

// Client calls the MediaWiki API.
//
// Contract:
//   - Concurrency: safe for concurrent use. All calls share one executor,
//     so the bulkhead, rate limit and breaker are global to the Client.
//   - Errors: always *landmark.Failure.
type Client struct {
	cfg  Config
	http *http.Client
	exec *resilience.Executor
	mw   *observe.Middleware
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithExecutor sets the resilience executor.
func WithExecutor(e *resilience.Executor) Option {
	return func(c *Client) { c.exec = e }
}

// WithMiddleware attaches telemetry.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) {
		if mw != nil {
			c.mw = mw
		}
	}
}

// New creates a Client. Missing config values fall back to the defaults;
// without WithExecutor the DefaultGuards executor is used.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultRadius
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}

	c := &Client{cfg: cfg, http: http.DefaultClient, mw: observe.NopMiddleware()}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		c.exec = DefaultGuards().Executor(c.mw.Logger())
	}
	return c
}

// Breaker returns the circuit breaker guarding this client, or nil.
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.exec.CircuitBreaker()
}

type listResponse struct {
	Query *struct {
		GeoSearch *[]landmark.RawPlace `json:"geosearch"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

type detailResponse struct {
	Query *struct {
		Pages map[string]page `json:"pages"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

type page struct {
	PageID  int64   `json:"pageid"`
	Extract string  `json:"extract"`
	Missing *string `json:"missing"`
	Invalid *string `json:"invalid"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) Error() string {
	return "api error " + e.Code + ": " + e.Info
}

// FetchList returns the places near (lat, lon), optionally narrowed by a
// search term, in upstream order.
func (c *Client) FetchList(ctx context.Context, lat, lon float64, search string) ([]landmark.RawPlace, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("list", "geosearch")
	q.Set("gscoord", strconv.FormatFloat(lat, 'f', -1, 64)+"|"+strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("gsradius", strconv.Itoa(c.cfg.Radius))
	q.Set("gslimit", strconv.Itoa(c.cfg.Limit))
	q.Set("format", "json")
	if search != "" {
		q.Set("gsearch", search)
	}

	const opName = "geosearch.list"
	op := observe.Operation{
		Component: "geosearch",
		Name:      "list",
		Attrs:     []attribute.KeyValue{attribute.Float64("geo.lat", lat), attribute.Float64("geo.lon", lon)},
	}
	places, err := call(ctx, c, op, opName, q, func(body []byte) ([]landmark.RawPlace, error) {
		var resp listResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, landmark.Malformed(opName, err)
		}
		if resp.Error != nil {
			return nil, landmark.Malformed(opName, resp.Error)
		}
		if resp.Query == nil || resp.Query.GeoSearch == nil {
			return nil, landmark.Malformed(opName, errors.New("missing query.geosearch"))
		}
		return *resp.Query.GeoSearch, nil
	})
	if err != nil {
		return nil, err
	}
	if places == nil {
		places = []landmark.RawPlace{}
	}
	return places, nil
}

// FetchDetail returns the plain-text intro extract for a page. A page that
// exists but has no extract yields "".
func (c *Client) FetchDetail(ctx context.Context, pageID int64) (string, error) {
	id := strconv.FormatInt(pageID, 10)
	q := url.Values{}
	q.Set("action", "query")
	q.Set("pageids", id)
	q.Set("prop", "extracts")
	q.Set("exintro", "")
	q.Set("explaintext", "")
	q.Set("format", "json")

	const opName = "geosearch.detail"
	op := observe.Operation{
		Component: "geosearch",
		Name:      "detail",
		Attrs:     []attribute.KeyValue{attribute.Int64("wiki.pageid", pageID)},
	}
	return call(ctx, c, op, opName, q, func(body []byte) (string, error) {
		var resp detailResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", landmark.Malformed(opName, err)
		}
		if resp.Error != nil {
			return "", landmark.Malformed(opName, resp.Error)
		}
		if resp.Query == nil {
			return "", landmark.Malformed(opName, errors.New("missing query.pages"))
		}
		p, ok := resp.Query.Pages[id]
		if !ok {
			return "", landmark.Malformed(opName, fmt.Errorf("page %s not in reply", id))
		}
		if p.Missing != nil || p.Invalid != nil {
			return "", landmark.Malformed(opName, fmt.Errorf("page %s missing", id))
		}
		return p.Extract, nil
	})
}

// call runs one guarded request. Attempts abandoned by the timeout guard
// may still finish in the background, so the decoded value is handed over
// under a lock.
func call[T any](ctx context.Context, c *Client, op observe.Operation, opName string, q url.Values, decode func([]byte) (T, error)) (T, error) {
	var (
		mu  sync.Mutex
		out T
	)
	err := c.mw.Run(ctx, op, func(ctx context.Context) error {
		return c.exec.Execute(ctx, func(ctx context.Context) error {
			body, err := c.get(ctx, opName, q)
			if err != nil {
				return err
			}
			v, err := decode(body)
			if err != nil {
				return err
			}
			mu.Lock()
			out = v
			mu.Unlock()
			return nil
		})
	})

	mu.Lock()
	defer mu.Unlock()
	if err == nil {
		return out, nil
	}

	var zero T
	var f *landmark.Failure
	if errors.As(err, &f) {
		return zero, f
	}
	return zero, landmark.Unavailable(opName, err)
}

func (c *Client) get(ctx context.Context, opName string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, landmark.Unavailable(opName, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, landmark.Unavailable(opName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, landmark.Unavailable(opName, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, landmark.Unavailable(opName, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}
