package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DownloadLink is the presigned archive URL returned by the HTTP API.
type DownloadLink struct {
	SubmissionID string    `json:"submission_id"`
	URL          string    `json:"download_url"`
	ArchiveKey   string    `json:"archive_key"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// HTTP returns the underlying client, e.g. for following presigned links.
func (c *HTTPClient) HTTP() *http.Client {
	return c.http
}

// DownloadLink requests a presigned GET URL for the submission's archive.
func (c *HTTPClient) DownloadLink(ctx context.Context, submissionID string) (*DownloadLink, error) {
	endpoint := c.baseURL + "/api/submission-packs/download/" + url.PathEscape(submissionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapError(resp)
	}

	var link DownloadLink
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return nil, fmt.Errorf("decode download link: %w", err)
	}
	if link.URL == "" {
		return nil, fmt.Errorf("decode download link: empty download_url")
	}
	return &link, nil
}

func (c *HTTPClient) mapError(resp *http.Response) error {
	var body apiError
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error.Message
	if msg == "" {
		msg = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return fmt.Errorf("http error: %s", msg)
	}
}
