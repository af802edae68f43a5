package mock

import (
	"context"

	"github.com/oharling/newsrelay/internal/feed"
)

type Fetcher struct {
	Items []feed.Item
	Err   error
}

func (f *Fetcher) Fetch(ctx context.Context) ([]feed.Item, error) {
	_ = ctx
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Items, nil
}
