package rubric

import (
	"context"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func Fetch(ctx context.Context, client *resty.Client, url string) (*Rubric, error) {
	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch rubric")
	}
	if resp.IsError() {
		return nil, errors.Errorf("failed to fetch rubric: %s", resp.Status())
	}
	return Parse(resp.Body())
}

// Fetcher keeps the default rubric fresh. Events created by admins start with
// a copy of it.
type Fetcher struct {
	current atomic.Value

	url    string
	client *resty.Client
	logger *zap.Logger
}

func NewFetcher(url string, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		url:    url,
		client: resty.New().SetTimeout(10 * time.Second).SetRetryCount(2),
		logger: logger.Named("rubric"),
	}
}

func (f *Fetcher) Run(ctx context.Context, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := f.Reload(ctx); err != nil {
				f.logger.Error("Failed to reload default rubric", zap.Error(err))
			}
		}
	}
}

func (f *Fetcher) Reload(ctx context.Context) error {
	rubric, err := Fetch(ctx, f.client, f.url)
	if err != nil {
		return err
	}

	prev := f.current.Swap(rubric)
	if prev == nil || !reflect.DeepEqual(prev.(*Rubric), rubric) {
		f.logger.Info("Updated default rubric", zap.Int("num_criteria", len(rubric.Criteria)))
	}
	return nil
}

// Current returns nil until the first successful reload.
func (f *Fetcher) Current() *Rubric {
	cur := f.current.Load()
	if cur == nil {
		return nil
	}
	return cur.(*Rubric)
}
