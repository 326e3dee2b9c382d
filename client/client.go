// Package client talks to the shortlink API and keeps a local history of the
// links created through it.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/Yapcheekian/shortlink/models"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

var (
	ErrInvalidURL = errors.New("invalid URL")

	schemeRegex = regexp.MustCompile("(?i)^https?://")
)

// APIError is a non 2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	apiURL string
	http   *http.Client
}

// New returns a client for the API rooted at apiURL, e.g. http://localhost:5000/api.
func New(apiURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		http:   httpClient,
	}
}

type ShortenResult struct {
	ShortURL  string    `json:"shortUrl"`
	Clicks    int64     `json:"clicks"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ShortID is the last path segment of the short URL.
func (r *ShortenResult) ShortID() string {
	return r.ShortURL[strings.LastIndex(r.ShortURL, "/")+1:]
}

// ValidateURL is the check run before anything is sent: the URL must parse
// and carry an http or https scheme.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return errors.Wrapf(ErrInvalidURL, "%q", raw)
	}
	if !schemeRegex.MatchString(raw) {
		return errors.Wrapf(ErrInvalidURL, "%q needs an http or https scheme", raw)
	}
	return nil
}

type shortenRequest struct {
	OriginalURL string   `json:"originalUrl"`
	ExpiresIn   *float64 `json:"expiresIn,omitempty"`
}

// Shorten validates originalURL and asks the server for a short link.
// expiresIn is in hours; nil leaves the server default.
func (c *Client) Shorten(ctx context.Context, originalURL string, expiresIn *float64) (*ShortenResult, error) {
	if err := ValidateURL(originalURL); err != nil {
		return nil, err
	}

	var res ShortenResult
	if err := c.do(ctx, http.MethodPost, "/shorten", shortenRequest{OriginalURL: originalURL, ExpiresIn: expiresIn}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// List fetches every link the server knows, newest first.
func (c *Client) List(ctx context.Context) ([]models.Link, error) {
	var links []models.Link
	if err := c.do(ctx, http.MethodGet, "/all", nil, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// Delete removes the link on the server. The local history is not touched.
func (c *Client) Delete(ctx context.Context, shortID string) error {
	return c.do(ctx, http.MethodDelete, "/"+url.PathEscape(shortID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, out), "decode response")
}
