package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

type twitterStub struct {
	uploads atomic.Int32
	tweets  atomic.Int32

	uploadStatus int
	tweetStatus  int
	lastTweet    []byte
}

func newTwitterStub(t *testing.T, stub *twitterStub) (*twitterService, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/1.1/media/upload.json", func(w http.ResponseWriter, r *http.Request) {
		stub.uploads.Add(1)
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, _, err := r.FormFile("media")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		require.Equal(t, pngBytes, data)

		if stub.uploadStatus != 0 {
			w.WriteHeader(stub.uploadStatus)
			return
		}
		w.Write([]byte(`{"media_id":710511363345354753,"media_id_string":"710511363345354753"}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		stub.tweets.Add(1)
		require.Contains(t, r.Header.Get("Authorization"), `oauth_token="user-token"`)
		stub.lastTweet, _ = io.ReadAll(r.Body)

		if stub.tweetStatus != 0 {
			w.WriteHeader(stub.tweetStatus)
			w.Write([]byte(`{"title":"Forbidden","detail":"You are not allowed to create a Tweet with duplicate content."}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1445880548472328192","text":"hello"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := NewTwitterService(
		NewOAuth1Signer("ck", "cs"),
		srv.Client(),
		rate.NewLimiter(rate.Inf, 1),
		NewMediaFetcher(srv.Client(), 1<<20),
	).(*twitterService)
	s.apiBase = srv.URL
	s.uploadBase = srv.URL
	return s, srv
}

func twitterCredential() *Credential {
	return &Credential{Platform: "twitter", AccessToken: "user-token", TokenSecret: "user-secret"}
}

func TestTwitterPublishTextOnly(t *testing.T) {
	stub := &twitterStub{}
	s, _ := newTwitterStub(t, stub)

	result, err := s.Publish(context.Background(), PublishRequest{Content: "hello", Credential: twitterCredential()})
	require.NoError(t, err)
	require.Equal(t, &PublishResult{ID: "1445880548472328192"}, result)
	require.Equal(t, int32(0), stub.uploads.Load())
	require.Equal(t, "hello", gjson.GetBytes(stub.lastTweet, "text").String())
	require.False(t, gjson.GetBytes(stub.lastTweet, "media").Exists())
}

func TestTwitterPublishWithMedia(t *testing.T) {
	stub := &twitterStub{}
	s, srv := newTwitterStub(t, stub)

	result, err := s.Publish(context.Background(), PublishRequest{
		Content:    "hello",
		MediaURL:   srv.URL + "/image.png",
		Credential: twitterCredential(),
	})
	require.NoError(t, err)
	require.True(t, result.HasMedia)
	require.Equal(t, int32(1), stub.uploads.Load())
	require.Equal(t, "710511363345354753", gjson.GetBytes(stub.lastTweet, "media.media_ids.0").String())
}

func TestTwitterPublishDegradesToText(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		uploadStatus int
		wantUploads  int32
	}{
		{name: "media not found", path: "/missing.png"},
		{name: "media is not an image", path: "/page.html"},
		{name: "upload rejected", path: "/image.png", uploadStatus: http.StatusBadRequest, wantUploads: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &twitterStub{uploadStatus: tt.uploadStatus}
			s, srv := newTwitterStub(t, stub)

			result, err := s.Publish(context.Background(), PublishRequest{
				Content:    "hello",
				MediaURL:   srv.URL + tt.path,
				Credential: twitterCredential(),
			})
			require.NoError(t, err)
			require.False(t, result.HasMedia)
			require.Equal(t, "1445880548472328192", result.ID)
			require.Equal(t, tt.wantUploads, stub.uploads.Load())
			require.Equal(t, int32(1), stub.tweets.Load())
			require.False(t, gjson.GetBytes(stub.lastTweet, "media").Exists())
		})
	}
}

func TestTwitterPublishRejected(t *testing.T) {
	stub := &twitterStub{tweetStatus: http.StatusForbidden}
	s, _ := newTwitterStub(t, stub)

	_, err := s.Publish(context.Background(), PublishRequest{Content: "hello", Credential: twitterCredential()})

	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	require.Equal(t, http.StatusForbidden, pubErr.StatusCode)
	require.Contains(t, pubErr.Body, "duplicate content")
}

func TestTwitterPublishMissingSecret(t *testing.T) {
	s, _ := newTwitterStub(t, &twitterStub{})

	_, err := s.Publish(context.Background(), PublishRequest{
		Content:    "hello",
		Credential: &Credential{AccessToken: "user-token"},
	})
	require.ErrorIs(t, err, ErrCredentialIncomplete)
}

func TestTwitterRequestToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/request_token", func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.Header.Get("Authorization"), "oauth_callback=")
		w.Write([]byte("oauth_token=req-token&oauth_token_secret=req-secret&oauth_callback_confirmed=true"))
	})
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.Header.Get("Authorization"), `oauth_verifier="v123"`)
		require.Contains(t, r.Header.Get("Authorization"), `oauth_token="req-token"`)
		w.Write([]byte("oauth_token=acc-token&oauth_token_secret=acc-secret&user_id=6253282&screen_name=twitterapi"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewTwitterService(NewOAuth1Signer("ck", "cs"), srv.Client(), rate.NewLimiter(rate.Inf, 1), nil).(*twitterService)
	s.apiBase = srv.URL

	reqToken, err := s.RequestToken(context.Background(), "http://localhost:3000/auth/twitter/callback")
	require.NoError(t, err)
	require.Equal(t, "req-token", reqToken.Token)
	require.True(t, reqToken.CallbackConfirmed)
	require.Equal(t, srv.URL+"/oauth/authorize?oauth_token=req-token", s.AuthorizeURL(reqToken.Token))

	access, err := s.AccessToken(context.Background(), reqToken.Token, reqToken.TokenSecret, "v123")
	require.NoError(t, err)
	require.Equal(t, "acc-token", access.Token)
	require.Equal(t, "acc-secret", access.TokenSecret)
	require.Equal(t, "twitterapi", access.ScreenName)
}
