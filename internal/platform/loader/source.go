package loader

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Source yields the raw bundle document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// NewSource picks an HTTP source for http(s) locations and a file source
// otherwise.
func NewSource(location string, timeout time.Duration) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, timeout)
	}
	return FileSource{Path: location}
}

type HTTPSource struct {
	client *resty.Client
	url    string
}

// NewHTTPSource fetches url with a single attempt bounded by timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &HTTPSource{client: client, url: url}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch bundle from %s: %w", s.url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch bundle from %s: unexpected status %d", s.url, resp.StatusCode())
	}
	return resp.Body(), nil
}

func (s *HTTPSource) String() string { return s.url }

type FileSource struct {
	Path string
}

func (s FileSource) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read bundle file: %w", err)
	}
	return data, nil
}

func (s FileSource) String() string { return s.Path }
