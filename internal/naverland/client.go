// Package naverland is the HTTP client for the upstream land API. It is the
// only place the system performs network I/O: a fetch either yields decoded
// JSON or an error, and every lookup above it treats errors as empty results.
package naverland

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"danji/server/config"
)

// API is the fetch capability consumed by the resolver and the crawler.
type API interface {
	RegionList(code string) (any, error)
	ComplexList(code string) (any, error)
	ComplexDetail(complexNo string) (any, error)
	Schools(complexNo string) (any, error)
	Prices(complexNo string, areaNo int) (any, error)
}

// Client implements API against the real service.
type Client struct {
	baseURL    string
	authToken  string
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
	logger     *logrus.Logger
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return &Client{
		baseURL:    cfg.API.BaseURL,
		authToken:  cfg.API.AuthToken,
		maxRetries: cfg.API.MaxRetries,
		retryDelay: time.Duration(cfg.API.RetryDelay) * time.Second,
		client:     &http.Client{Timeout: cfg.RequestTimeout()},
		logger:     logger,
	}
}

// RegionList fetches the child regions of a parent code. The root of the
// hierarchy is code "0000000000".
func (c *Client) RegionList(code string) (any, error) {
	params := url.Values{"cortarNo": []string{code}}
	return c.fetch("regions/list", params, "")
}

// ComplexList fetches the complexes registered in a neighborhood.
func (c *Client) ComplexList(code string) (any, error) {
	params := url.Values{
		"cortarNo":       []string{code},
		"realEstateType": []string{"APT"},
		"order":          []string{""},
	}
	return c.fetch("regions/complexes", params, "")
}

// ComplexDetail fetches the detail payload for one complex, including the
// per-unit-type list.
func (c *Client) ComplexDetail(complexNo string) (any, error) {
	params := url.Values{"sameAddressGroup": []string{"false"}}
	return c.fetch("complexes/"+complexNo, params, complexNo)
}

// Schools fetches the school payload for one complex.
func (c *Client) Schools(complexNo string) (any, error) {
	return c.fetch("complexes/"+complexNo+"/schools", nil, complexNo)
}

// Prices fetches the price-history payload for one unit-type variant of a
// complex. areaNo selects the variant.
func (c *Client) Prices(complexNo string, areaNo int) (any, error) {
	params := url.Values{
		"complexNo":        []string{complexNo},
		"tradeType":        []string{"A1"},
		"year":             []string{"5"},
		"priceChartChange": []string{"true"},
		"areaNo":           []string{fmt.Sprintf("%d", areaNo)},
		"areaChange":       []string{"true"},
		"type":             []string{"table"},
	}
	return c.fetch("complexes/"+complexNo+"/prices", params, complexNo)
}

// fetch issues one GET with retry. Attempts are capped at maxRetries with a
// doubling delay between them. A non-2xx status, an empty body, or a body
// that fails to decode all count as failed attempts; an empty-but-valid JSON
// body does not.
func (c *Client) fetch(endpoint string, params url.Values, complexNo string) (any, error) {
	fullURL := c.baseURL + "/" + endpoint

	var lastErr error
	delay := c.retryDelay
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			time.Sleep(delay)
			delay *= 2
		}

		result, err := c.doRequest(fullURL, params, complexNo)
		if err == nil {
			return result, nil
		}
		lastErr = err

		c.logger.WithError(err).WithFields(logrus.Fields{
			"endpoint": endpoint,
			"attempt":  attempt,
			"max":      c.maxRetries,
		}).Warn("Fetch attempt failed")
	}

	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", endpoint, c.maxRetries, lastErr)
}

func (c *Client) doRequest(fullURL string, params url.Values, complexNo string) (any, error) {
	req, err := http.NewRequest(http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if params != nil {
		req.URL.RawQuery = params.Encode()
	}
	c.setHeaders(req, complexNo)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// The service serves UTF-8 with a byte-order mark.
	body = bytes.TrimPrefix(body, utf8BOM)
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return result, nil
}

// setHeaders attaches the bearer token and the referer the service expects,
// templated with the complex under request when there is one.
func (c *Client) setHeaders(req *http.Request, complexNo string) {
	if complexNo == "" {
		complexNo = "6372"
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	req.Header.Set("Referer", fmt.Sprintf("https://new.land.naver.com/complexes/%s?ms=36.321777,127.40236,17&a=APT&e=RETAIL", complexNo))
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
}
