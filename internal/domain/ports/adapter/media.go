package adapter

import "context"

// FetchedMedia is a downloaded media object.
type FetchedMedia struct {
	Data        []byte
	ContentType string
}

type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedMedia, error)
}
