// Package classify asks an external service to suggest a genre for an image.
package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"media-ingest/internal/logging"
	"media-ingest/internal/metrics"
)

var log = logging.For("classify")

// MinConfidence is the lowest confidence a suggestion needs to be used.
const MinConfidence = 0.5

// DefaultTimeout bounds one classification request.
const DefaultTimeout = 10 * time.Second

// ErrUnavailable wraps every transport or protocol failure.
var ErrUnavailable = errors.New("classifier unavailable")

type request struct {
	Image       string `json:"image"`
	ContentType string `json:"contentType"`
}

type response struct {
	Genre      string  `json:"genre"`
	Confidence float64 `json:"confidence"`
}

// Client is a JSON-over-HTTP genre classifier.
type Client struct {
	endpoint string
	client   *http.Client
}

// New returns a client that POSTs to endpoint.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Classify returns the suggested genre, or an empty string when the
// service is not confident enough.
func (c *Client) Classify(ctx context.Context, data []byte, contentType string) (string, error) {
	genre, err := c.classify(ctx, data, contentType)
	switch {
	case err != nil:
		metrics.ClassifierRequestsTotal.WithLabelValues("error").Inc()
		return "", err
	case genre == "":
		metrics.ClassifierRequestsTotal.WithLabelValues("low_confidence").Inc()
	default:
		metrics.ClassifierRequestsTotal.WithLabelValues("ok").Inc()
	}
	return genre, nil
}

func (c *Client) classify(ctx context.Context, data []byte, contentType string) (string, error) {
	body, err := json.Marshal(request{
		Image:       base64.StdEncoding.EncodeToString(data),
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	genre := strings.TrimSpace(out.Genre)
	if out.Confidence < MinConfidence {
		log.Debug("discarding genre %q with confidence %.2f", genre, out.Confidence)
		return "", nil
	}
	return genre, nil
}
