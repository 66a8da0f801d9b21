package adapter

import "context"

// OCRClient turns one image or PDF into text.
type OCRClient interface {
	Recognize(ctx context.Context, data []byte, isPDF bool) (string, error)
}
