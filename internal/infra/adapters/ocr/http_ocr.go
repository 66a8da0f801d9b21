// File: internal/infra/adapters/ocr/http_ocr.go
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"manuscript-pipeline/internal/domain/ports/adapter"
)

var _ adapter.OCRClient = (*HTTPClient)(nil)

// HTTPClient talks to the OCR sidecar: POST {base}/ocr with a multipart
// "file" field, answered by {"text": ...} or {"error": ...}.
type HTTPClient struct {
	base   string
	client *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Recognize(ctx context.Context, data []byte, isPDF bool) (string, error) {
	filename, mimeType := "page.jpg", "image/jpeg"
	if isPDF {
		filename, mimeType = "document.pdf", "application/pdf"
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/ocr", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var out struct {
		Text  *string `json:"text"`
		Error string  `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("OCR service returned invalid JSON (%d)", resp.StatusCode)
	}
	if resp.StatusCode >= 300 || out.Error != "" {
		if out.Error != "" {
			return "", errors.New(out.Error)
		}
		return "", errors.New("OCR service request failed")
	}
	if out.Text == nil {
		return "", nil
	}
	return strings.TrimSpace(*out.Text), nil
}
