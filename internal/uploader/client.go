package uploader

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"codeberg.org/mutker/radmon/internal/errors"
)

const postTimeout = 60 * time.Second

// Client talks to the collector's bulk-update endpoint. Each call carries
// one batch of raw stored records inside the write-key envelope.
type Client struct {
	http    *http.Client
	baseURL string
	channel string
	apiKey  string
}

func NewClient(baseURL, channel, apiKey string) *Client {
	return &Client{
		http:    &http.Client{Timeout: postTimeout},
		baseURL: baseURL,
		channel: channel,
		apiKey:  apiKey,
	}
}

// PostBatch sends one batch. The stored lines are already JSON objects, so
// the body is assembled by joining them rather than re-marshaling.
// The collector acknowledges queued bulk updates with 202.
func (c *Client) PostBatch(ctx context.Context, lines []string) error {
	errFactory := errors.New()

	body := fmt.Sprintf(`{"write_api_key":"%s","updates":[%s]}`, c.apiKey, strings.Join(lines, ","))
	url := fmt.Sprintf("%s/channels/%s/bulk_update.json", c.baseURL, c.channel)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return errFactory.Wrap(ErrPostFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errFactory.Wrap(ErrPostFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return errFactory.WithData(ErrBadStatus, resp.StatusCode)
	}

	return nil
}
