package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"codeberg.org/mutker/radmon/internal/errors"
	"codeberg.org/mutker/radmon/internal/logger"
)

const (
	ErrDispatchFailed = errors.ErrorCode("alert_dispatch_failed")
	ErrBadStatus      = errors.ErrorCode("alert_unexpected_status")
)

const notifyTimeout = 30 * time.Second

// NopNotifier is used when no alert channel is configured; triggers are
// only logged.
type NopNotifier struct{}

func (NopNotifier) Notify(_ context.Context, event, value string) error {
	logger.Info().Str("event", event).Str("value", value).Msg("alert channel not configured, logging only")
	return nil
}

// HTTPNotifier posts to a webhook-style trigger endpoint
// (<base>/trigger/<event>/with/key/<key>) with the value in the JSON body.
type HTTPNotifier struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewHTTPNotifier(baseURL, apiKey string) *HTTPNotifier {
	return &HTTPNotifier{
		client:  &http.Client{Timeout: notifyTimeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, event, value string) error {
	errFactory := errors.New()

	body, err := json.Marshal(map[string]string{"value1": value})
	if err != nil {
		return errFactory.Wrap(ErrDispatchFailed, err)
	}

	url := fmt.Sprintf("%s/trigger/%s/with/key/%s", n.baseURL, event, n.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errFactory.Wrap(ErrDispatchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errFactory.Wrap(ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errFactory.WithData(ErrBadStatus, resp.StatusCode)
	}

	return nil
}
