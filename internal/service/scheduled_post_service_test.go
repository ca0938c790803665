package service

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/repository"
	"github.com/maheshrc27/mailtosocial/internal/transfer"
	"github.com/stretchr/testify/require"
)

type memoryPosts struct {
	repository.ScheduledPostRepository
	posts     map[string]*models.ScheduledPost
	createErr error
}

func (m *memoryPosts) Create(ctx context.Context, post *models.ScheduledPost) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *memoryPosts) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memoryPosts) Update(ctx context.Context, post *models.ScheduledPost) (bool, error) {
	current, ok := m.posts[post.ID]
	if !ok || current.Status != models.PostStatusPending {
		return false, nil
	}
	cp := *post
	m.posts[post.ID] = &cp
	return true, nil
}

func (m *memoryPosts) Remove(ctx context.Context, id, userID string) (bool, error) {
	p, ok := m.posts[id]
	if !ok || p.UserID != userID {
		return false, nil
	}
	delete(m.posts, id)
	return true, nil
}

type memoryAssets struct {
	repository.MediaAssetRepository
	created []*models.MediaAsset
	removed []string
}

func (m *memoryAssets) Create(ctx context.Context, ma *models.MediaAsset) error {
	m.created = append(m.created, ma)
	return nil
}

func (m *memoryAssets) Remove(ctx context.Context, id string) error {
	m.removed = append(m.removed, id)
	return nil
}

type fakeS3 struct {
	input *s3.PutObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	return &s3.PutObjectOutput{}, nil
}

var serviceNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newPostService() (*scheduledPostService, *memoryPosts, *memoryAssets, *fakeS3) {
	posts := &memoryPosts{posts: map[string]*models.ScheduledPost{}}
	assets := &memoryAssets{}
	bucket := &fakeS3{}
	storage := &r2Storage{client: bucket, bucket: "media", publicURL: "https://media.example.com"}

	s := NewScheduledPostService(posts, assets, nil, storage, 1<<20).(*scheduledPostService)
	s.nowFn = func() time.Time { return serviceNow }
	return s, posts, assets, bucket
}

func uploadHeader(t *testing.T, name string, data []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["file"][0]
}

func TestCreateScheduledPost(t *testing.T) {
	s, posts, _, _ := newPostService()

	post, err := s.Create(context.Background(), "u1", &transfer.ScheduledPostCreation{
		Content:      "launch day",
		Platform:     "Twitter",
		ScheduledFor: serviceNow.Add(time.Hour),
		MediaURL:     "https://cdn.example.com/a.png",
	}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, post.ID)
	require.Equal(t, models.PlatformTwitter, post.Platform)
	require.Equal(t, models.PostStatusPending, post.Status)
	require.Equal(t, "https://cdn.example.com/a.png", *post.MediaURL)
	require.Contains(t, posts.posts, post.ID)
}

func TestCreateScheduledPostWithUpload(t *testing.T) {
	s, _, assets, bucket := newPostService()

	post, err := s.Create(context.Background(), "u1", &transfer.ScheduledPostCreation{
		Content:      "with image",
		Platform:     "linkedin",
		ScheduledFor: serviceNow.Add(time.Hour),
	}, uploadHeader(t, "photo.png", pngBytes))
	require.NoError(t, err)

	require.NotNil(t, post.MediaURL)
	require.True(t, strings.HasPrefix(*post.MediaURL, "https://media.example.com/"))
	require.True(t, strings.HasSuffix(*post.MediaURL, ".png"))
	require.Equal(t, "image/png", *bucket.input.ContentType)
	require.Equal(t, "media", *bucket.input.Bucket)
	require.Len(t, assets.created, 1)
	require.Equal(t, "photo.png", assets.created[0].FileName)
	require.Equal(t, *post.MediaURL, assets.created[0].FileURL)
}

func TestCreateScheduledPostRemovesAssetOnFailure(t *testing.T) {
	s, posts, assets, _ := newPostService()
	posts.createErr = errors.New("insert failed")

	_, err := s.Create(context.Background(), "u1", &transfer.ScheduledPostCreation{
		Content:      "with image",
		Platform:     "twitter",
		ScheduledFor: serviceNow.Add(time.Hour),
	}, uploadHeader(t, "photo.png", pngBytes))
	require.Error(t, err)

	require.Len(t, assets.created, 1)
	require.Equal(t, []string{assets.created[0].ID}, assets.removed)
}

func TestCreateScheduledPostValidation(t *testing.T) {
	tests := []struct {
		name string
		in   *transfer.ScheduledPostCreation
		file []byte
	}{
		{name: "unknown platform", in: &transfer.ScheduledPostCreation{Content: "x", Platform: "mastodon", ScheduledFor: serviceNow.Add(time.Hour)}},
		{name: "tweet too long", in: &transfer.ScheduledPostCreation{Content: strings.Repeat("é", 281), Platform: "twitter", ScheduledFor: serviceNow.Add(time.Hour)}},
		{name: "blank content", in: &transfer.ScheduledPostCreation{Content: "   ", Platform: "twitter", ScheduledFor: serviceNow.Add(time.Hour)}},
		{name: "in the past", in: &transfer.ScheduledPostCreation{Content: "x", Platform: "twitter", ScheduledFor: serviceNow.Add(-time.Hour)}},
		{name: "missing time", in: &transfer.ScheduledPostCreation{Content: "x", Platform: "twitter"}},
		{name: "bad media url", in: &transfer.ScheduledPostCreation{Content: "x", Platform: "twitter", ScheduledFor: serviceNow.Add(time.Hour), MediaURL: "not a url"}},
		{name: "upload is not an image", in: &transfer.ScheduledPostCreation{Content: "x", Platform: "twitter", ScheduledFor: serviceNow.Add(time.Hour)}, file: []byte("plain text")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, posts, _, _ := newPostService()

			var file *multipart.FileHeader
			if tt.file != nil {
				file = uploadHeader(t, "notes.txt", tt.file)
			}

			_, err := s.Create(context.Background(), "u1", tt.in, file)
			require.ErrorIs(t, err, ErrInvalidPost)
			require.Empty(t, posts.posts)
		})
	}
}

func TestCreateScheduledPostWithinGrace(t *testing.T) {
	s, _, _, _ := newPostService()

	_, err := s.Create(context.Background(), "u1", &transfer.ScheduledPostCreation{
		Content:      "now-ish",
		Platform:     "twitter",
		ScheduledFor: serviceNow.Add(-30 * time.Second),
	}, nil)
	require.NoError(t, err)
}

func TestUpdateScheduledPost(t *testing.T) {
	s, posts, _, _ := newPostService()
	media := "https://cdn.example.com/a.png"
	posts.posts["p1"] = &models.ScheduledPost{ID: "p1", UserID: "u1", Content: "old", Platform: "twitter",
		ScheduledFor: serviceNow.Add(time.Hour), MediaURL: &media, Status: models.PostStatusPending}
	posts.posts["p2"] = &models.ScheduledPost{ID: "p2", UserID: "u1", Content: "done", Platform: "twitter",
		ScheduledFor: serviceNow.Add(-time.Hour), Status: models.PostStatusPosted}

	content, none := "new", ""
	post, err := s.Update(context.Background(), "u1", "p1", &transfer.ScheduledPostUpdate{Content: &content, MediaURL: &none})
	require.NoError(t, err)
	require.Equal(t, "new", post.Content)
	require.Nil(t, post.MediaURL)
	require.Equal(t, "new", posts.posts["p1"].Content)

	_, err = s.Update(context.Background(), "u1", "p2", &transfer.ScheduledPostUpdate{Content: &content})
	require.ErrorIs(t, err, ErrPostNotEditable)

	_, err = s.Update(context.Background(), "someone-else", "p1", &transfer.ScheduledPostUpdate{Content: &content})
	require.ErrorIs(t, err, ErrPostNotFound)
}

func TestGetAndRemoveScheduledPost(t *testing.T) {
	s, posts, _, _ := newPostService()
	posts.posts["p1"] = &models.ScheduledPost{ID: "p1", UserID: "u1", Status: models.PostStatusPending}

	_, err := s.Get(context.Background(), "u2", "p1")
	require.ErrorIs(t, err, ErrPostNotFound)

	post, err := s.Get(context.Background(), "u1", "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", post.ID)

	require.ErrorIs(t, s.Remove(context.Background(), "u2", "p1"), ErrPostNotFound)
	require.NoError(t, s.Remove(context.Background(), "u1", "p1"))
	require.Empty(t, posts.posts)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	s, _, _, _ := newPostService()

	_, err := s.List(context.Background(), "u1", "archived")
	require.ErrorIs(t, err, ErrInvalidPost)
}
