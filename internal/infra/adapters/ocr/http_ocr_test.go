package ocr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Recognize(t *testing.T) {
	t.Run("sends the file part and trims text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ocr", r.URL.Path)
			f, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			b, _ := io.ReadAll(f)
			assert.Equal(t, "document.pdf", hdr.Filename)
			assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))
			assert.Equal(t, []byte("%PDF"), b)
			_, _ = w.Write([]byte(`{"text":"  श्लोक  \n"}`))
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL+"/", time.Second)
		text, err := c.Recognize(context.Background(), []byte("%PDF"), true)
		require.NoError(t, err)
		assert.Equal(t, "श्लोक", text)
	})

	t.Run("images go as page.jpg", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			assert.Equal(t, "page.jpg", hdr.Filename)
			_, _ = w.Write([]byte(`{"text":""}`))
		}))
		defer srv.Close()

		text, err := NewHTTPClient(srv.URL, time.Second).Recognize(context.Background(), []byte{0xff, 0xd8}, false)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("service error is surfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"unreadable page"}`))
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL, time.Second).Recognize(context.Background(), []byte("x"), false)
		assert.EqualError(t, err, "unreadable page")
	})

	t.Run("non-JSON body reports status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL, time.Second).Recognize(context.Background(), []byte("x"), false)
		assert.EqualError(t, err, "OCR service returned invalid JSON (502)")
	})

	t.Run("non-2xx without error field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL, time.Second).Recognize(context.Background(), []byte("x"), false)
		assert.EqualError(t, err, "OCR service request failed")
	})
}
