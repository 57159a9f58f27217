// Package gzippedhttp accepts gzip-compressed request bodies.
// Response compression is left to chi's middleware.Compress.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/userauth/internal/apperror"
	"github.com/patric-chuzhbe/userauth/internal/logger"
)

// decompressingReader reads the gunzipped content of a request body
// and closes both streams.
type decompressingReader struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newDecompressingReader(body io.ReadCloser) (*decompressingReader, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &decompressingReader{
		body: body,
		zr:   zr,
	}, nil
}

func (d *decompressingReader) Read(p []byte) (int, error) {
	return d.zr.Read(p)
}

func (d *decompressingReader) Close() error {
	if err := d.zr.Close(); err != nil {
		_ = d.body.Close()
		return err
	}
	return d.body.Close()
}

// UngzipRequest replaces a body sent with `Content-Encoding: gzip` by
// its decompressed content. A body that is not valid gzip is rejected
// with 400.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		body, err := newDecompressingReader(request.Body)
		if err != nil {
			logger.Log.Debugln("Error calling the `newDecompressingReader()`: ", zap.Error(err))
			apperror.Respond(response, apperror.ErrInvalidRequest)
			return
		}
		defer body.Close()

		request.Body = body
		request.Header.Del("Content-Encoding")
		request.ContentLength = -1

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
