package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cartrules/pkg/logging"
)

// DefaultTimeout bounds a single execution report.
const DefaultTimeout = 5 * time.Second

// Event records one rule execution.
type Event struct {
	RuleID    string `json:"ruleId"`
	SessionID string `json:"sessionId"`
	CartID    string `json:"cartId"`
	Shop      string `json:"shop"`
}

// Reporter delivers execution events. Report never blocks the caller on the
// network and never returns an error; delivery failures are logged.
type Reporter interface {
	Report(Event)
}

// NopReporter drops every event.
type NopReporter struct{}

// Report implements Reporter.
func (NopReporter) Report(Event) {}

// HTTPReporter posts events to {baseURL}/api/cart-rules on a background
// goroutine per event.
type HTTPReporter struct {
	endpoint   string
	httpClient *http.Client
	wg         sync.WaitGroup
}

// NewHTTPReporter creates an HTTP reporter. A zero timeout uses DefaultTimeout.
func NewHTTPReporter(baseURL string, timeout time.Duration) *HTTPReporter {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &HTTPReporter{
		endpoint:   strings.TrimSuffix(baseURL, "/") + "/api/cart-rules",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Report implements Reporter.
func (r *HTTPReporter) Report(ev Event) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.send(context.Background(), ev); err != nil {
			reportsTotal.WithLabelValues("failure").Inc()
			logging.Warn("Telemetry", "Failed to report execution of rule %s: %v", ev.RuleID, err)
			return
		}
		reportsTotal.WithLabelValues("success").Inc()
		logging.Debug("Telemetry", "Reported execution of rule %s", ev.RuleID)
	}()
}

func (r *HTTPReporter) send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Wait blocks until every in-flight report has finished or ctx is done.
func (r *HTTPReporter) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
