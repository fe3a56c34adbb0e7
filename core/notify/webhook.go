package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"kestrel-qhse/config"
	"kestrel-qhse/core/utils"
	"kestrel-qhse/core/workflow"
)

// WebhookSink posts workflow events as JSON to an external dispatcher. The
// dispatcher owns delivery channels and retries; this side only hands the
// event over.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(cfg config.NotifyConfig) *WebhookSink {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *WebhookSink) Publish(ctx context.Context, ev workflow.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSink writes events to the application log. Default sink when no webhook
// is configured.
type LogSink struct {
	logger *utils.Logger
}

func NewLogSink(logger *utils.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, ev workflow.Event) error {
	s.logger.Infof("event %s workflow=%d step=%v role=%s", ev.Type, ev.WorkflowID, derefID(ev.StepID), ev.AssignedRole)
	return nil
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
