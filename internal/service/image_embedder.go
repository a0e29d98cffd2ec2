package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/GTDGit/storefront_api/internal/utils"
)

// ImageEmbedder turns an image reference into an embedded data URI.
type ImageEmbedder interface {
	Embed(ctx context.Context, src string) (string, error)
}

// HTTPImageEmbedder downloads remote images and base64 encodes them.
type HTTPImageEmbedder struct {
	client   *http.Client
	maxBytes int
}

// NewHTTPImageEmbedder constructs an embedder. maxBytes bounds the produced
// data URI, not the downloaded body.
func NewHTTPImageEmbedder(timeout time.Duration, maxBytes int) *HTTPImageEmbedder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &HTTPImageEmbedder{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Embed returns src unchanged when it already is a data URI or is empty.
func (e *HTTPImageEmbedder) Embed(ctx context.Context, src string) (string, error) {
	if src == "" || strings.HasPrefix(src, "data:") {
		return src, nil
	}
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return "", utils.NewValidationError("image", "unsupported image reference", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", utils.NewValidationError("image", err.Error(), nil)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w: %w", utils.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	// Base64 grows the body by a third; stop reading once the URI cannot fit.
	limit := int64(base64.StdEncoding.DecodedLen(e.maxBytes)) + 1
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	mimeType := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mimeType = mt
		}
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", utils.NewValidationError("image", "not an image: "+mimeType, nil)
	}

	prefix := "data:" + mimeType + ";base64,"
	if len(prefix)+base64.StdEncoding.EncodedLen(len(body)) > e.maxBytes {
		return "", utils.NewValidationError("image", fmt.Sprintf("embedded image exceeds %d bytes", e.maxBytes), utils.ErrPayloadTooLarge)
	}
	return prefix + base64.StdEncoding.EncodeToString(body), nil
}

// NopImageEmbedder keeps every reference as is.
type NopImageEmbedder struct{}

func (NopImageEmbedder) Embed(_ context.Context, src string) (string, error) {
	return src, nil
}
