// pkg/okta/client.go
//
// Minimal Okta REST client for the re-enrollment campaign. Pagination
// follows the Link response header ("rel=next") with an iterative cursor
// loop; a failed bulk fetch is an error the orchestrator treats as fatal,
// since partial collections would produce wrong gap-analysis conclusions.

package okta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const (
	userPageLimit   = 200
	devicePageLimit = 1000
	appPageLimit    = 1000
)

// Client talks to a single Okta org using an SSWS API token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

// NewClient builds a client for the given org URL (e.g.
// https://example.okta.com).
func NewClient(baseURL, token string, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// StatusError is a non-2xx response from the Okta API.
type StatusError struct {
	Code    int
	Summary string
}

func (e *StatusError) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("okta returned status %d: %s", e.Code, e.Summary)
	}
	return fmt.Sprintf("okta returned status %d", e.Code)
}

// IsNotFound reports whether err is an Okta 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return cerr.As(err, &se) && se.Code == http.StatusNotFound
}

// apiError is the error envelope Okta embeds in response bodies.
type apiError struct {
	ErrorCode    string `json:"errorCode"`
	ErrorSummary string `json:"errorSummary"`
}

// do performs one request and returns the raw body and headers. Non-2xx
// statuses come back as a *StatusError carrying the embedded summary when
// one was present.
func (c *Client) do(ctx context.Context, method, url string, body interface{}) ([]byte, http.Header, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, cerr.Wrap(err, "failed to encode request body")
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, nil, cerr.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "SSWS "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, cerr.Wrapf(err, "request to %s failed", url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, cerr.Wrapf(err, "failed to read response from %s", url)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Code: resp.StatusCode}
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.ErrorSummary != "" {
			se.Summary = ae.ErrorSummary
		}
		return data, resp.Header, se
	}

	return data, resp.Header, nil
}

// getJSON fetches a single (non-paginated) resource into out.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	data, _, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		if ae := embeddedError(data); ae != nil {
			return ae
		}
		return cerr.Wrapf(err, "failed to decode response from %s", url)
	}
	return nil
}

// fetchPaged walks every page of a collection endpoint, concatenating the
// results in order. One HTTP call per page, no recursion.
func fetchPaged[T any](ctx context.Context, c *Client, firstURL string) ([]T, error) {
	var all []T
	url := firstURL
	for page := 1; url != ""; page++ {
		c.log.Debug("Fetching page", zap.Int("page", page), zap.String("url", url))

		data, hdr, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, cerr.Wrapf(err, "failed to fetch page %d", page)
		}

		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			if ae := embeddedError(data); ae != nil {
				return nil, cerr.Wrapf(ae, "okta reported an error on page %d", page)
			}
			return nil, cerr.Wrapf(err, "failed to decode page %d", page)
		}
		all = append(all, items...)

		url = nextLink(hdr)
	}
	return all, nil
}

// embeddedError recognizes an Okta error envelope inside a 2xx body.
func embeddedError(data []byte) error {
	var ae apiError
	if json.Unmarshal(data, &ae) == nil && ae.ErrorCode != "" {
		return cerr.Newf("okta error %s: %s", ae.ErrorCode, ae.ErrorSummary)
	}
	return nil
}

// nextLink extracts the rel="next" continuation URL from the Link response
// headers, or "" on the terminal page.
func nextLink(h http.Header) string {
	for _, raw := range h.Values("Link") {
		for _, part := range strings.Split(raw, ",") {
			seg := strings.TrimSpace(part)
			if !strings.Contains(seg, `rel="next"`) {
				continue
			}
			start := strings.Index(seg, "<")
			end := strings.Index(seg, ">")
			if start >= 0 && end > start {
				return seg[start+1 : end]
			}
		}
	}
	return ""
}
