package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/webgraph/pkg/cache"
	"github.com/matzehuels/webgraph/pkg/session"
)

// Defaults for a [Source].
const (
	DefaultTimeout  = 5 * time.Second
	DefaultAttempts = 3
	DefaultDelay    = 200 * time.Millisecond

	// maxBody caps the info box payload read from the endpoint.
	maxBody = 1 << 20
)

// Source fetches info box content from a URL template. "{key}" is replaced
// with the escaped node key and "{score}" with the node score, or the empty
// string when the node has none.
type Source struct {
	template string
	client   *http.Client
	cache    cache.Cache
	ttl      time.Duration
	attempts int
	delay    time.Duration
}

// Option configures a [Source].
type Option func(*Source)

// WithClient sets the HTTP client. The default has a [DefaultTimeout].
func WithClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithCache caches responses for ttl. A zero ttl never expires.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Source) { s.cache, s.ttl = c, ttl }
}

// WithRetry sets the attempt count and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Source) { s.attempts, s.delay = attempts, delay }
}

// NewSource creates a source for the URL template.
func NewSource(template string, opts ...Option) *Source {
	s := &Source{
		template: template,
		client:   &http.Client{Timeout: DefaultTimeout},
		cache:    cache.NewNullCache(),
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL expands the template for a node.
func (s *Source) URL(key string, score *float64) string {
	sc := ""
	if score != nil {
		sc = strconv.FormatFloat(*score, 'f', -1, 64)
	}
	return strings.NewReplacer("{key}", url.PathEscape(key), "{score}", url.QueryEscape(sc)).Replace(s.template)
}

// Provider adapts the source to the session's info box hook.
func (s *Source) Provider() session.InfoBoxProvider {
	return s.Fetch
}

// Fetch returns the info box of a node, from the cache when possible.
func (s *Source) Fetch(ctx context.Context, key string, score *float64) (session.InfoBox, error) {
	u := s.URL(key, score)
	cacheKey := "infobox:" + cache.Hash([]byte(u))

	if data, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
		var box session.InfoBox
		if err := json.Unmarshal(data, &box); err == nil {
			return box, nil
		}
	}

	var data []byte
	err := Retry(ctx, s.attempts, s.delay, func() error {
		var err error
		data, err = s.get(ctx, u)
		return err
	})
	if err != nil {
		return session.InfoBox{}, err
	}

	var box session.InfoBox
	if err := json.Unmarshal(data, &box); err != nil {
		return session.InfoBox{}, fmt.Errorf("decode info box from %s: %w", u, err)
	}
	_ = s.cache.Set(ctx, cacheKey, data, s.ttl)
	return box, nil
}

func (s *Source) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(u, resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

// Providers builds one provider per category from a category to URL template
// map.
func Providers(templates map[string]string, opts ...Option) map[string]session.InfoBoxProvider {
	if len(templates) == 0 {
		return nil
	}
	out := make(map[string]session.InfoBoxProvider, len(templates))
	for category, tmpl := range templates {
		out[category] = NewSource(tmpl, opts...).Provider()
	}
	return out
}
