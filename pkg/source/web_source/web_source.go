package websource

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"sync/atomic"
	"time"

	"sub_trigger_bot/pkg/holder"
	"sub_trigger_bot/pkg/id"
	"sub_trigger_bot/pkg/parser"
	"sub_trigger_bot/pkg/source"

	"github.com/pkg/errors"
)

const (
	DefaultBaseURL     = "https://socialblade.com"
	DefaultReadTimeout = 10 * time.Second
	DefaultOpenTimeout = 30 * time.Second

	maxPageSize = 4 << 20

	headlessUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36"
	defaultUserAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:106.0) Gecko/20100101 Firefox/106.0"
)

// Web source config with parser.
type Config struct {
	BaseURL     string
	Channel     id.ChannelID
	// Selects the request header profile only, pages are never rendered or run.
	// A browser-backed source (chromedp) is needed for script-built counters.
	Headless    bool
	ReadTimeout time.Duration
	OpenTimeout time.Duration
	Parser      parser.Parser[uint64]
}

// Scraping session against the realtime counter page.
type WebSource struct {
	config  *Config
	url     string
	client  *http.Client
	closed  atomic.Bool
	once    sync.Once
	counter uint64
}

var _ source.Source = (*WebSource)(nil)

// Opens a session: the counter page is loaded once so cookies and connections are in place.
// The given client is used as is, nil creates a dedicated client with its own transport.
func Open(ctx context.Context, config *Config, client *http.Client) (*WebSource, error) {
	if config.Parser == nil {
		return nil, errors.New("nil parser")
	}
	if err := config.Channel.Validate(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	*cfg = *config

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}

	if client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		client = &http.Client{
			Jar:       jar,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}

	s := &WebSource{
		config: cfg,
		url:    cfg.Channel.RealtimeURL(cfg.BaseURL),
		client: client,
	}

	openCtx, cancel := context.WithTimeout(ctx, cfg.OpenTimeout)
	defer cancel()

	if err := s.warmUp(openCtx); err != nil {
		s.client.CloseIdleConnections()
		return nil, errors.Wrapf(err, "failed to open %s", s.url)
	}

	return s, nil
}

func (s *WebSource) warmUp(ctx context.Context) error {
	resp, err := s.get(ctx)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageSize))
	return err
}

// Loads the counter page and parses the current value.
func (s *WebSource) Read(ctx context.Context) (holder.Sample, error) {
	if s.closed.Load() {
		return holder.Unavailable(), source.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ReadTimeout)
	defer cancel()

	atomic.AddUint64(&s.counter, 1)

	resp, err := s.get(ctx)
	if err != nil {
		return holder.Unavailable(), err
	}
	defer resp.Body.Close()

	count, err := s.config.Parser.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return holder.Unavailable(), errors.Wrapf(err, "failed to parse %s", s.url)
	}

	return holder.Available(count), nil
}

func (s *WebSource) get(ctx context.Context) (*http.Response, error) {
	// build request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, err
	}

	// header profile only, no JS rendering behind the headless flag
	if s.config.Headless {
		req.Header.Add("User-Agent", headlessUserAgent)
		req.Header.Add("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Add("Accept-Language", "en-US,en;q=0.9")
	} else {
		req.Header.Add("User-Agent", defaultUserAgent)
		req.Header.Add("Accept", "text/html")
	}

	// do request
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("Error: %d - %s", resp.StatusCode, resp.Status)
	}

	return resp, nil
}

// Closes the session. Safe to call more than once.
func (s *WebSource) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		s.client.CloseIdleConnections()
	})
	return nil
}

func (s *WebSource) GetCount() uint64 {
	return atomic.LoadUint64(&s.counter)
}

func (s *WebSource) URL() string {
	return s.url
}
