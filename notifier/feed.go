package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FeedCollector pulls notices from an HTTP endpoint serving a JSON array of
// records. It lets scraper sidecars stay out of this process: they expose
// their latest findings over HTTP and this adapter ingests them.
type FeedCollector struct {
	name    string
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewFeedCollector(name string, url string, timeout time.Duration) *FeedCollector {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FeedCollector{
		name:    name,
		url:     url,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (f *FeedCollector) Name() string { return f.name }

func (f *FeedCollector) Collect(ctx context.Context) ([]NoticeRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", f.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", f.name, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.name, err)
	}

	var records []NoticeRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.name, err)
	}

	// Feeds may omit the source field; stamp it with the collector name.
	for i := range records {
		if trimmed(records[i].Source) == "" {
			records[i].Source = f.name
		}
	}
	return records, nil
}
