package httpclient

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

const (
	DefaultTimeout      = 60 * time.Second
	MaxIdleConnsPerHost = 8
	UserAgent           = "modpreview/1.0"
)

var defaultClient = &http.Client{
	Timeout: DefaultTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		// Bodies are decoded by Body so brotli mirrors work too.
		DisableCompression: true,
	},
}

// Default returns the shared client used for asset and repair downloads.
func Default() *http.Client {
	return defaultClient
}

// NewRequest builds a GET with the shared headers.
func NewRequest(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Encoding", "br, gzip")
	return req
}

// Body wraps resp.Body according to Content-Encoding. Closing the result closes the decoder
// and resp.Body.
func Body(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		return &decodedBody{Reader: brotli.NewReader(resp.Body), body: resp.Body}, nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return &decodedBody{Reader: zr, decoder: zr, body: resp.Body}, nil
	default:
		return resp.Body, nil
	}
}

type decodedBody struct {
	io.Reader
	decoder io.Closer
	body    io.Closer
}

func (b *decodedBody) Close() error {
	var errs []error
	if b.decoder != nil {
		errs = append(errs, b.decoder.Close())
	}
	errs = append(errs, b.body.Close())
	return errors.Join(errs...)
}
