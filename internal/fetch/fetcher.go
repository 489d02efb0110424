package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/clarityfilter/internal/model"
)

// Defaults used when no option overrides them.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "clarityfilter/1.0"
	maxRedirects     = 10
)

// Fetcher retrieves pages over HTTP.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	timeout     time.Duration
	proxyAddr   string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize limits the response body read. Larger bodies are cut and
// the page is marked truncated.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithTimeout sets the whole-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithProxy routes requests through the SOCKS5 proxy at host:port.
func WithProxy(address string) Option {
	return func(f *Fetcher) {
		f.proxyAddr = address
	}
}

// WithHTTPClient uses client instead of building one. Proxy and timeout
// options are ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// New creates a Fetcher. It fails only for a malformed proxy address; the
// proxy is not contacted until the first request.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		userAgent:   DefaultUserAgent,
		maxBodySize: model.MaxPageSize,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client != nil {
		return f, nil
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if f.proxyAddr != "" {
		if !validProxyAddress(f.proxyAddr) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, f.proxyAddr)
		}
		dialer, err := proxy.SOCKS5("tcp", f.proxyAddr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContext(dialer)
	}

	f.client = &http.Client{
		Transport: transport,
		Timeout:   f.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return f, nil
}

// dialContext adapts a proxy.Dialer to a transport DialContext, using the
// context-aware interface when the dialer has it.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// validProxyAddress checks for host:port with a port in 1..65535.
func validProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// Fetch retrieves rawURL. Non-2xx responses are returned as pages with
// their status code; the caller decides whether to filter them.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, truncated, err := readLimited(resp.Body, f.maxBodySize)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", u, err)
	}

	// The final URL after redirects is what whitelist checks see.
	page := model.NewPage(resp.Request.URL.String(), body)
	page.StatusCode = resp.StatusCode
	page.ContentType = resp.Header.Get("Content-Type")
	page.Truncated = truncated
	if !page.IsHTML() {
		return page, fmt.Errorf("%w: %s", ErrNotHTML, page.ContentType)
	}
	return page, nil
}

// LoadFile reads a local HTML file. The page URL is the file:// URL of
// the absolute path unless pageURL is given.
func LoadFile(path, pageURL string) (*model.Page, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	body, truncated, err := readLimited(file, model.MaxPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if pageURL == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		pageURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	page := model.NewPage(pageURL, body)
	page.Truncated = truncated
	return page, nil
}

// readLimited reads at most limit bytes and reports whether more followed.
func readLimited(r io.Reader, limit int64) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

// IsURL reports whether target names an http or https resource rather than
// a local file.
func IsURL(target string) bool {
	u, err := url.Parse(target)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
