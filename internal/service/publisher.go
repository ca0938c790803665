package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrCredentialNotFound   = errors.New("credential not found")
	ErrCredentialIncomplete = errors.New("credential incomplete")
	ErrMediaDownload        = errors.New("media download failed")
	ErrMediaValidation      = errors.New("media is not an image")
	ErrMediaUpload          = errors.New("media upload failed")
	ErrUnsupportedPlatform  = errors.New("unsupported platform")
	ErrRelayUnreachable     = errors.New("relay unreachable")
)

// Credential is the token material needed to publish for one user on one
// platform. TokenSecret is only set for Twitter.
type Credential struct {
	Platform    string
	AccessToken string
	TokenSecret string
	ProfileID   string
}

type PublishRequest struct {
	UserID     string
	Content    string
	MediaURL   string
	Credential *Credential
}

type PublishResult struct {
	ID       string `json:"id"`
	HasMedia bool   `json:"hasMedia"`
}

// Publisher posts content to a single platform.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
}

// PublishError is a non-success answer from a platform or the relay.
// Fallback fields are set when a second attempt was made.
type PublishError struct {
	Platform       string
	StatusCode     int
	Body           string
	FallbackStatus int
	FallbackBody   string
}

func (e *PublishError) Error() string {
	if e.FallbackStatus != 0 {
		return fmt.Sprintf("%s publish rejected: status %d: %s; retry without author: status %d: %s",
			e.Platform, e.StatusCode, e.Body, e.FallbackStatus, e.FallbackBody)
	}
	return fmt.Sprintf("%s publish rejected: status %d: %s", e.Platform, e.StatusCode, e.Body)
}

func truncateBody(b []byte) string {
	const max = 2048
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
