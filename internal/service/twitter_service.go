package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/maheshrc27/mailtosocial/internal/metrics"
	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/transfer"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	twitterAPIBase    = "https://api.twitter.com"
	twitterUploadBase = "https://upload.twitter.com"
)

// TwitterService publishes tweets with user-context OAuth 1.0a signatures
// and runs the three-legged flow that connects a Twitter account.
type TwitterService interface {
	Publisher
	RequestToken(ctx context.Context, callbackURL string) (*transfer.TwitterRequestToken, error)
	AuthorizeURL(requestToken string) string
	AccessToken(ctx context.Context, requestToken, requestSecret, verifier string) (*transfer.TwitterAccessToken, error)
}

type twitterService struct {
	signer  *OAuth1Signer
	client  *http.Client
	limiter *rate.Limiter
	media   MediaFetcher

	apiBase    string
	uploadBase string
}

func NewTwitterService(signer *OAuth1Signer, client *http.Client, limiter *rate.Limiter, media MediaFetcher) TwitterService {
	return &twitterService{
		signer:     signer,
		client:     client,
		limiter:    limiter,
		media:      media,
		apiBase:    twitterAPIBase,
		uploadBase: twitterUploadBase,
	}
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

// Publish posts a tweet. Media that cannot be downloaded, validated or
// uploaded is dropped and the tweet goes out as text.
func (s *twitterService) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	cred := req.Credential
	if cred == nil || cred.AccessToken == "" || cred.TokenSecret == "" {
		return nil, fmt.Errorf("%w: twitter needs an oauth token and secret", ErrCredentialIncomplete)
	}

	payload := tweetRequest{Text: req.Content}
	if req.MediaURL != "" {
		mediaID, err := s.uploadMedia(ctx, cred, req.MediaURL)
		if err != nil {
			slog.Warn("twitter media skipped, posting text only", "media_url", req.MediaURL, "error", err)
			metrics.IncMediaDegraded(models.PlatformTwitter)
		} else {
			payload.Media = &tweetMedia{MediaIDs: []string{mediaID}}
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	s.signer.Sign(httpReq, cred.AccessToken, cred.TokenSecret, nil, nil)

	status, respBody, err := s.do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("post tweet: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, &PublishError{Platform: models.PlatformTwitter, StatusCode: status, Body: truncateBody(respBody)}
	}

	id := gjson.GetBytes(respBody, "data.id").String()
	if id == "" {
		return nil, &PublishError{Platform: models.PlatformTwitter, StatusCode: status, Body: "response has no tweet id: " + truncateBody(respBody)}
	}

	return &PublishResult{ID: id, HasMedia: payload.Media != nil}, nil
}

func (s *twitterService) uploadMedia(ctx context.Context, cred *Credential, mediaURL string) (string, error) {
	media, err := s.media.Fetch(ctx, mediaURL)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", media.FileName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}
	if _, err := part.Write(media.Data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}
	if err := writer.WriteField("media_category", "tweet_image"); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadBase+"/1.1/media/upload.json", &buf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	s.signer.Sign(req, cred.AccessToken, cred.TokenSecret, nil, nil)

	status, body, err := s.do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("%w: status %d: %s", ErrMediaUpload, status, truncateBody(body))
	}

	mediaID := gjson.GetBytes(body, "media_id_string").String()
	if mediaID == "" {
		return "", fmt.Errorf("%w: response has no media_id_string", ErrMediaUpload)
	}
	return mediaID, nil
}

func (s *twitterService) RequestToken(ctx context.Context, callbackURL string) (*transfer.TwitterRequestToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/oauth/request_token", nil)
	if err != nil {
		return nil, err
	}
	s.signer.Sign(req, "", "", nil, map[string]string{"oauth_callback": callbackURL})

	values, err := s.formResponse(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("request token: %w", err)
	}

	token := &transfer.TwitterRequestToken{
		Token:             values.Get("oauth_token"),
		TokenSecret:       values.Get("oauth_token_secret"),
		CallbackConfirmed: values.Get("oauth_callback_confirmed") == "true",
	}
	if token.Token == "" || token.TokenSecret == "" {
		return nil, fmt.Errorf("request token: missing oauth_token in response")
	}
	return token, nil
}

func (s *twitterService) AuthorizeURL(requestToken string) string {
	return s.apiBase + "/oauth/authorize?" + url.Values{"oauth_token": {requestToken}}.Encode()
}

func (s *twitterService) AccessToken(ctx context.Context, requestToken, requestSecret, verifier string) (*transfer.TwitterAccessToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/oauth/access_token", nil)
	if err != nil {
		return nil, err
	}
	s.signer.Sign(req, requestToken, requestSecret, nil, map[string]string{"oauth_verifier": verifier})

	values, err := s.formResponse(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}

	token := &transfer.TwitterAccessToken{
		Token:       values.Get("oauth_token"),
		TokenSecret: values.Get("oauth_token_secret"),
		UserID:      values.Get("user_id"),
		ScreenName:  values.Get("screen_name"),
	}
	if token.Token == "" || token.TokenSecret == "" {
		return nil, fmt.Errorf("access token: missing oauth_token in response")
	}
	return token, nil
}

func (s *twitterService) formResponse(ctx context.Context, req *http.Request) (url.Values, error) {
	status, body, err := s.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", status, truncateBody(body))
	}
	return url.ParseQuery(string(body))
}

func (s *twitterService) do(ctx context.Context, req *http.Request) (int, []byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
