package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/pkg/utils"
	"github.com/stretchr/testify/require"
)

func TestRelayPublisherTwitter(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/scheduled-posts/twitter", r.URL.Path)
		require.Equal(t, "Bearer "+utils.RelayToken("relay-secret", now), r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "hello", body["content"])
		require.Equal(t, "tok", body["oauthToken"])
		require.Equal(t, "sec", body["oauthTokenSecret"])
		_, hasMedia := body["mediaUrl"]
		require.False(t, hasMedia)

		w.Write([]byte(`{"success":true,"tweetId":"1789","hasMedia":false}`))
	}))
	defer srv.Close()

	p := NewRelayPublisher(models.PlatformTwitter, srv.URL, "relay-secret", srv.Client()).(*relayPublisher)
	p.nowFn = func() time.Time { return now }

	result, err := p.Publish(context.Background(), PublishRequest{
		Content:    "hello",
		Credential: &Credential{AccessToken: "tok", TokenSecret: "sec"},
	})
	require.NoError(t, err)
	require.Equal(t, &PublishResult{ID: "1789"}, result)
}

func TestRelayPublisherLinkedInError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/scheduled-posts/linkedin", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"linkedin publish rejected","details":{"status":422}}`))
	}))
	defer srv.Close()

	p := NewRelayPublisher(models.PlatformLinkedIn, srv.URL, "s", srv.Client())

	_, err := p.Publish(context.Background(), PublishRequest{
		Content:    "hello",
		Credential: &Credential{AccessToken: "at", ProfileID: "abc"},
	})
	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	require.Equal(t, http.StatusInternalServerError, pubErr.StatusCode)
	require.Equal(t, "linkedin publish rejected", pubErr.Body)
}

func TestRelayPublisherUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewRelayPublisher(models.PlatformTwitter, url, "s", &http.Client{Timeout: time.Second})

	_, err := p.Publish(context.Background(), PublishRequest{Content: "x", Credential: &Credential{AccessToken: "a", TokenSecret: "b"}})
	require.ErrorIs(t, err, ErrRelayUnreachable)
}

func TestRelayPublisherUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"Invalid bearer token"}`))
	}))
	defer srv.Close()

	p := NewRelayPublisher(models.PlatformTwitter, srv.URL, "wrong", srv.Client())

	_, err := p.Publish(context.Background(), PublishRequest{Content: "x", Credential: &Credential{AccessToken: "a", TokenSecret: "b"}})
	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	require.Equal(t, http.StatusForbidden, pubErr.StatusCode)
}
