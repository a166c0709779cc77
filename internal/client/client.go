// Package client submits a captured landmark set to the measurement endpoint.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mustfahassan/pd-calculator/internal/detector"
	"github.com/mustfahassan/pd-calculator/internal/measure"
)

// CalculatePath is the measurement endpoint path.
const CalculatePath = "/calculate_pd"

// DefaultTimeout bounds a single submission.
const DefaultTimeout = 15 * time.Second

var (
	// ErrRejected is returned when the endpoint answers with a non-success status.
	ErrRejected = errors.New("measurement rejected")
	// ErrHTTPStatus is returned for non-2xx responses.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrMalformed is returned when the response body cannot be decoded.
	ErrMalformed = errors.New("malformed measurement response")
)

// Client posts landmarks to a measurement service. It makes exactly one
// attempt per Submit; retrying is left to the user staying in frame.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the service at baseURL (e.g. "http://localhost:8080").
// A nil httpClient gets one with DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Submit sends the landmarks and returns the successful result. Network
// failures, non-2xx answers, malformed bodies and status != "success" all
// come back as errors.
func (c *Client) Submit(ctx context.Context, landmarks []detector.Point3D) (*measure.Result, error) {
	var body bytes.Buffer
	if err := measure.EncodeRequest(&body, measure.NewRequest(landmarks)); err != nil {
		return nil, fmt.Errorf("encode landmarks: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+CalculatePath, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit landmarks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	result, err := measure.DecodeResult(resp.Body)
	if err != nil {
		// Covers undecodable bodies and successes missing pd_mm or confidence.
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if result.Status != measure.StatusSuccess {
		msg := result.Message
		if msg == "" {
			msg = fmt.Sprintf("status %q", result.Status)
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	return &result, nil
}
