package cbr

import (
	"bufio"
	"bytes"
	"context"
	"cbr-rate-converter/domain"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
	"io"
	"net/http"
	"time"
)

// DefaultURL is the daily reference-rate page of the Central Bank of Russia.
const DefaultURL = "https://cbr.ru/currency_base/daily/"

// DefaultTimeout bounds a single fetch when Config.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// DefaultUserAgent is sent when Config.UserAgent is empty. The CBR site
// rejects requests that do not look like they come from a browser.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

const (
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguageHeader = "ru,en;q=0.9"
)

// Service provides the current rate table
type Service interface {
	Rates(ctx context.Context) (*domain.RateTable, error)
}

// Config for NewService. Zero values fall back to the package defaults.
type Config struct {
	URL        string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient HTTPClient
}

// service fetches and parses the CBR daily rates page
type service struct {
	// url of the rates page
	url string

	// timeout for the whole round trip, body included
	timeout time.Duration

	userAgent string

	// client for HTTP requests
	client HTTPClient
}

// NewService constructs a valid CBR Service.
func NewService(cfg Config) Service {
	s := &service{
		url:       cfg.URL,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		client:    cfg.HTTPClient,
	}
	if s.url == "" {
		s.url = DefaultURL
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.userAgent == "" {
		s.userAgent = DefaultUserAgent
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	return s
}

// Fetch performs one fetch of url and returns the normalized table.
func Fetch(ctx context.Context, url string, timeout time.Duration, userAgent string) (*domain.RateTable, error) {
	return NewService(Config{URL: url, Timeout: timeout, UserAgent: userAgent}).Rates(ctx)
}

// Rates downloads the rates page and extracts the rate table.
// Errors are *FetchError or *ParseError.
func (s *service) Rates(ctx context.Context) (*domain.RateTable, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &FetchError{URL: s.url, Err: err}
	}
	request.Header.Set("User-Agent", s.userAgent)
	request.Header.Set("Accept", acceptHeader)
	request.Header.Set("Accept-Language", acceptLanguageHeader)

	httpResponse, err := s.client.Do(request)
	if err != nil {
		return nil, &FetchError{URL: s.url, Err: err}
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: s.url, StatusCode: httpResponse.StatusCode}
	}

	// read the page fully so a timeout while streaming is reported as a fetch failure
	page, err := io.ReadAll(decodeBody(httpResponse.Body, httpResponse.Header.Get("Content-Type")))
	if err != nil {
		return nil, &FetchError{URL: s.url, Err: err}
	}

	return ParseTable(bytes.NewReader(page))
}

// decodeBody converts the page to UTF-8. A charset named in the Content-Type
// header or a <meta> tag wins; otherwise the page is assumed to be UTF-8.
func decodeBody(body io.Reader, contentType string) io.Reader {
	br := bufio.NewReader(body)
	peek, _ := br.Peek(1024)

	enc, name, certain := charset.DetermineEncoding(peek, contentType)
	if name == "utf-8" || (!certain && name == "windows-1252") {
		return br
	}
	return transform.NewReader(br, enc.NewDecoder())
}
