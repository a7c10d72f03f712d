package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/abhinaya/internal/gesture"
)

// ProcessPath is the backend endpoint that accepts gesture records.
const ProcessPath = "/api/gestures/process"

// ErrBackendStatus is returned when the backend answers with a non-2xx status.
var ErrBackendStatus = errors.New("unexpected backend status")

// HTTPSink POSTs each record as JSON to the backend.
type HTTPSink struct {
	url    string
	client *http.Client
}

// NewHTTPSink creates a sink posting to backendURL + ProcessPath. A nil
// client uses http.DefaultClient; deadlines come from the Send context.
func NewHTTPSink(backendURL string, client *http.Client) *HTTPSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSink{
		url:    strings.TrimRight(backendURL, "/") + ProcessPath,
		client: client,
	}
}

// URL returns the endpoint records are posted to.
func (s *HTTPSink) URL() string {
	return s.url
}

// Send posts rec.
func (s *HTTPSink) Send(ctx context.Context, rec gesture.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode gesture: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrBackendStatus, resp.Status)
	}
	return nil
}
