package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maheshrc27/mailtosocial/internal/metrics"
	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/transfer"
	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/time/rate"
)

const linkedInAPIBase = "https://api.linkedin.com"

const (
	shareContentPath = `specificContent.com\.linkedin\.ugc\.ShareContent`
	uploadURLPath    = `value.uploadMechanism.com\.linkedin\.digitalmedia\.uploading\.MediaUploadHttpRequest.uploadUrl`
)

type LinkedInService interface {
	Publisher
	UserInfo(ctx context.Context, accessToken string) (*transfer.LinkedInUserInfo, error)
}

type linkedInService struct {
	client   *http.Client
	limiter  *rate.Limiter
	media    MediaFetcher
	profiles *cache.Cache

	apiBase string
}

func NewLinkedInService(client *http.Client, limiter *rate.Limiter, media MediaFetcher) LinkedInService {
	return &linkedInService{
		client:   client,
		limiter:  limiter,
		media:    media,
		profiles: cache.New(time.Hour, 10*time.Minute),
		apiBase:  linkedInAPIBase,
	}
}

type linkedInResponse struct {
	status int
	header http.Header
	body   []byte
}

func (r *linkedInResponse) ok() bool {
	return r.status >= 200 && r.status <= 299
}

// Publish creates a UGC post. When the first attempt is rejected with a
// body mentioning the author, it is retried once without the author field.
func (s *linkedInService) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	cred := req.Credential
	if cred == nil || cred.AccessToken == "" {
		return nil, fmt.Errorf("%w: linkedin needs an access token", ErrCredentialIncomplete)
	}

	// Without a profile id the post goes out with no author and no image,
	// since an image upload needs an owner.
	author := ""
	profileID := cred.ProfileID
	if profileID == "" {
		var err error
		if profileID, err = s.profileID(ctx, cred.AccessToken); err != nil {
			slog.Warn("linkedin profile lookup failed, posting without author", "error", err)
		}
	}
	if profileID != "" {
		author = "urn:li:person:" + profileID
	}

	body, err := ugcPostBody(author, req.Content)
	if err != nil {
		return nil, err
	}

	hasMedia := false
	if req.MediaURL != "" && author == "" {
		slog.Warn("linkedin media skipped, no author to own the upload", "media_url", req.MediaURL)
		metrics.IncMediaDegraded(models.PlatformLinkedIn)
	} else if req.MediaURL != "" {
		asset, err := s.uploadImage(ctx, cred.AccessToken, author, req.MediaURL)
		if err != nil {
			slog.Warn("linkedin media skipped, posting text only", "media_url", req.MediaURL, "error", err)
			metrics.IncMediaDegraded(models.PlatformLinkedIn)
		} else if body, err = attachImage(body, asset); err != nil {
			return nil, err
		} else {
			hasMedia = true
		}
	}

	first, err := s.submit(ctx, cred.AccessToken, body)
	if err != nil {
		return nil, fmt.Errorf("post to linkedin: %w", err)
	}
	if first.ok() {
		return &PublishResult{ID: postIDFrom(first), HasMedia: hasMedia}, nil
	}

	pubErr := &PublishError{Platform: models.PlatformLinkedIn, StatusCode: first.status, Body: truncateBody(first.body)}
	if author == "" || !strings.Contains(strings.ToLower(string(first.body)), "author") {
		return nil, pubErr
	}

	slog.Info("linkedin rejected author, retrying without it", "status", first.status)
	withoutAuthor, err := sjson.Delete(body, "author")
	if err != nil {
		return nil, err
	}

	retry, err := s.submit(ctx, cred.AccessToken, withoutAuthor)
	if err != nil {
		return nil, fmt.Errorf("%v; retry without author: %w", pubErr, err)
	}
	if !retry.ok() {
		pubErr.FallbackStatus = retry.status
		pubErr.FallbackBody = truncateBody(retry.body)
		return nil, pubErr
	}

	return &PublishResult{ID: postIDFrom(retry), HasMedia: hasMedia}, nil
}

func ugcPostBody(author, content string) (string, error) {
	body := `{}`
	fields := []struct {
		path  string
		value any
	}{
		{"author", author},
		{"lifecycleState", "PUBLISHED"},
		{shareContentPath + ".shareCommentary.text", content},
		{shareContentPath + ".shareMediaCategory", "NONE"},
		{`visibility.com\.linkedin\.ugc\.MemberNetworkVisibility`, "PUBLIC"},
	}

	var err error
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if body, err = sjson.Set(body, f.path, f.value); err != nil {
			return "", fmt.Errorf("build linkedin body: %w", err)
		}
	}
	return body, nil
}

func attachImage(body, asset string) (string, error) {
	body, err := sjson.Set(body, shareContentPath+".shareMediaCategory", "IMAGE")
	if err != nil {
		return "", err
	}
	return sjson.Set(body, shareContentPath+".media", []map[string]any{{
		"status":      "READY",
		"media":       asset,
		"description": map[string]string{"text": ""},
		"title":       map[string]string{"text": ""},
	}})
}

func postIDFrom(resp *linkedInResponse) string {
	if id := resp.header.Get("X-RestLi-Id"); id != "" {
		return id
	}
	return gjson.GetBytes(resp.body, "id").String()
}

func (s *linkedInService) submit(ctx context.Context, accessToken, body string) (*linkedInResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/v2/ugcPosts", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	return s.do(ctx, accessToken, req)
}

// uploadImage registers an upload, PUTs the bytes and returns the asset URN.
func (s *linkedInService) uploadImage(ctx context.Context, accessToken, owner, mediaURL string) (string, error) {
	media, err := s.media.Fetch(ctx, mediaURL)
	if err != nil {
		return "", err
	}

	register := `{}`
	register, _ = sjson.Set(register, "registerUploadRequest.recipes", []string{"urn:li:digitalmediaRecipe:feedshare-image"})
	register, _ = sjson.Set(register, "registerUploadRequest.owner", owner)
	register, _ = sjson.Set(register, "registerUploadRequest.serviceRelationships", []map[string]string{{
		"relationshipType": "OWNER",
		"identifier":       "urn:li:userGeneratedContent",
	}})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/v2/assets?action=registerUpload", strings.NewReader(register))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := s.do(ctx, accessToken, req)
	if err != nil {
		return "", fmt.Errorf("%w: register upload: %v", ErrMediaUpload, err)
	}
	if !resp.ok() {
		return "", fmt.Errorf("%w: register upload status %d: %s", ErrMediaUpload, resp.status, truncateBody(resp.body))
	}

	uploadURL := gjson.GetBytes(resp.body, uploadURLPath).String()
	asset := gjson.GetBytes(resp.body, "value.asset").String()
	if uploadURL == "" || asset == "" {
		return "", fmt.Errorf("%w: register upload response has no upload url or asset", ErrMediaUpload)
	}

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(media.Data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}
	put.Header.Set("Content-Type", media.ContentType)

	resp, err = s.do(ctx, accessToken, put)
	if err != nil {
		return "", fmt.Errorf("%w: put image: %v", ErrMediaUpload, err)
	}
	if !resp.ok() {
		return "", fmt.Errorf("%w: put image status %d: %s", ErrMediaUpload, resp.status, truncateBody(resp.body))
	}

	return asset, nil
}

func (s *linkedInService) profileID(ctx context.Context, accessToken string) (string, error) {
	key := tokenCacheKey(accessToken)
	if id, ok := s.profiles.Get(key); ok {
		return id.(string), nil
	}

	info, err := s.UserInfo(ctx, accessToken)
	if err != nil {
		return "", err
	}

	s.profiles.SetDefault(key, info.Sub)
	return info.Sub, nil
}

func (s *linkedInService) UserInfo(ctx context.Context, accessToken string) (*transfer.LinkedInUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+"/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.do(ctx, accessToken, req)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, fmt.Errorf("userinfo status %d: %s", resp.status, truncateBody(resp.body))
	}

	parsed := gjson.ParseBytes(resp.body)
	info := &transfer.LinkedInUserInfo{
		Sub:     parsed.Get("sub").String(),
		Name:    parsed.Get("name").String(),
		Email:   parsed.Get("email").String(),
		Picture: parsed.Get("picture").String(),
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("userinfo response has no sub")
	}
	return info, nil
}

func (s *linkedInService) do(ctx context.Context, accessToken string, req *http.Request) (*linkedInResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return &linkedInResponse{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func tokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
