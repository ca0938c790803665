package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/h2non/filetype"
)

type Media struct {
	Data        []byte
	ContentType string
	FileName    string
}

// MediaFetcher downloads images referenced by scheduled posts. Errors wrap
// ErrMediaDownload or ErrMediaValidation; publishers treat both as a
// reason to post text only.
type MediaFetcher interface {
	Fetch(ctx context.Context, mediaURL string) (*Media, error)
}

type mediaFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewMediaFetcher(client *http.Client, maxBytes int64) MediaFetcher {
	return &mediaFetcher{client: client, maxBytes: maxBytes}
}

func (f *mediaFetcher) Fetch(ctx context.Context, mediaURL string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaDownload, err)
	}
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Expires", "0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrMediaDownload, mediaURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaDownload, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrMediaDownload, mediaURL, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrMediaDownload, mediaURL)
	}

	contentType, err := imageContentType(resp.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, err
	}

	return &Media{
		Data:        data,
		ContentType: contentType,
		FileName:    path.Base(resp.Request.URL.Path),
	}, nil
}

// imageContentType accepts a declared image/* type. A missing or generic
// binary type falls back to sniffing the bytes.
func imageContentType(declared string, data []byte) (string, error) {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		mediaType = ""
	}
	mediaType = strings.ToLower(mediaType)

	if strings.HasPrefix(mediaType, "image/") {
		return mediaType, nil
	}

	if mediaType == "" || mediaType == "application/octet-stream" || mediaType == "binary/octet-stream" {
		if kind, err := filetype.Match(data); err == nil && filetype.IsImage(data) {
			return kind.MIME.Value, nil
		}
	}

	if mediaType == "" {
		mediaType = "unknown"
	}
	return "", fmt.Errorf("%w: content type %s", ErrMediaValidation, mediaType)
}
