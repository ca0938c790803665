package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/transfer"
	"github.com/maheshrc27/mailtosocial/pkg/utils"
	"github.com/tidwall/gjson"
)

// relayPublisher hands a post to the signing relay, which holds the app
// secrets and talks to the platform.
type relayPublisher struct {
	platform string
	baseURL  string
	secret   string
	client   *http.Client
	nowFn    func() time.Time
}

func NewRelayPublisher(platform, baseURL, secret string, client *http.Client) Publisher {
	return &relayPublisher{
		platform: platform,
		baseURL:  baseURL,
		secret:   secret,
		client:   client,
		nowFn:    time.Now,
	}
}

func (p *relayPublisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	cred := req.Credential
	if cred == nil {
		return nil, fmt.Errorf("%w: no credential for %s", ErrCredentialIncomplete, p.platform)
	}

	var payload any
	switch p.platform {
	case models.PlatformTwitter:
		payload = transfer.TwitterRelayRequest{
			Content:          req.Content,
			OAuthToken:       cred.AccessToken,
			OAuthTokenSecret: cred.TokenSecret,
			MediaURL:         req.MediaURL,
		}
	case models.PlatformLinkedIn:
		payload = transfer.LinkedInRelayRequest{
			Content:     req.Content,
			AccessToken: cred.AccessToken,
			UserID:      cred.ProfileID,
			MediaURL:    req.MediaURL,
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, p.platform)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := p.baseURL + "/api/scheduled-posts/" + p.platform
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+utils.RelayToken(p.secret, p.nowFn()))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelayUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelayUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(respBody, "error").String()
		if msg == "" {
			msg = truncateBody(respBody)
		}
		return nil, &PublishError{Platform: p.platform, StatusCode: resp.StatusCode, Body: msg}
	}

	parsed := gjson.ParseBytes(respBody)
	idField := "postId"
	if p.platform == models.PlatformTwitter {
		idField = "tweetId"
	}

	id := parsed.Get(idField).String()
	if !parsed.Get("success").Bool() || id == "" {
		return nil, &PublishError{Platform: p.platform, StatusCode: resp.StatusCode, Body: "relay answered without a post id: " + truncateBody(respBody)}
	}

	return &PublishResult{ID: id, HasMedia: parsed.Get("hasMedia").Bool()}, nil
}
