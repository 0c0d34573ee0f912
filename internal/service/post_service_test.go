package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"catspot/internal/featureflags"
	"catspot/internal/models"
	"catspot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// objectStoreStub is a stub for ObjectStore.
type objectStoreStub struct {
	putFn    func(context.Context, string, []byte, string) (string, error)
	removeFn func(context.Context, string) error
	removed  []string
}

func (s *objectStoreStub) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	return s.putFn(ctx, key, body, contentType)
}

func (s *objectStoreStub) Remove(ctx context.Context, url string) error {
	s.removed = append(s.removed, url)
	if s.removeFn != nil {
		return s.removeFn(ctx, url)
	}
	return nil
}

func noopStore() *objectStoreStub {
	return &objectStoreStub{
		putFn: func(_ context.Context, key string, _ []byte, _ string) (string, error) {
			return "http://minio:9000/Images/" + key, nil
		},
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 64, 48))))
	return buf.Bytes()
}

func newPostService(repo *postRepoStub, store ObjectStore, pub ChangePublisher) *PostService {
	return NewPostService(repo, store, featureflags.NewManager("exif_location=on"), pub, TimelineOptions{})
}

func TestPostService_CreatePost(t *testing.T) {
	repo := noopPostRepo()
	var stored *models.Post
	repo.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 7
		stored = p
		return nil
	}
	store := noopStore()
	var key, contentType string
	store.putFn = func(_ context.Context, k string, body []byte, ct string) (string, error) {
		key, contentType = k, ct
		assert.NotEmpty(t, body)
		return "http://minio:9000/Images/" + k, nil
	}
	pub := &recordingPublisher{}
	svc := newPostService(repo, store, pub)

	lat, lng := 35.0, 135.0
	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		Viewer:    alice(),
		Caption:   " <p>sleepy</p> ",
		Latitude:  &lat,
		Longitude: &lng,
		Image:     testPNG(t),
	})
	require.NoError(t, err)

	assert.Equal(t, uint(7), post.ID)
	assert.Equal(t, "sleepy", stored.Caption)
	assert.Equal(t, aliceID, stored.UserID)
	assert.True(t, strings.HasPrefix(key, aliceID+"/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.Equal(t, "image/jpeg", contentType)
	assert.Equal(t, "http://minio:9000/Images/"+key, stored.ImageURL)
	assert.True(t, stored.HasLocation())
	assert.Equal(t, []string{ChangePostCreated}, pub.timeline)
}

func TestPostService_CreatePostValidation(t *testing.T) {
	lat := 95.0
	tests := []struct {
		name     string
		in       CreatePostInput
		wantCode string
	}{
		{"anonymous", CreatePostInput{Viewer: models.Anonymous{}}, models.CodeUnauthorized},
		{"missing image", CreatePostInput{Viewer: alice(), Caption: "x"}, models.CodeValidation},
		{"garbage image", CreatePostInput{Viewer: alice(), Image: []byte("nope")}, models.CodeValidation},
		{"half location", CreatePostInput{Viewer: alice(), Latitude: &lat, Image: []byte("x")}, models.CodeValidation},
		{"caption too long", CreatePostInput{Viewer: alice(), Caption: strings.Repeat("猫", 501)}, models.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := noopStore()
			store.putFn = func(context.Context, string, []byte, string) (string, error) {
				t.Fatal("nothing must be uploaded")
				return "", nil
			}
			svc := newPostService(noopPostRepo(), store, nil)

			_, err := svc.CreatePost(context.Background(), tt.in)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestPostService_CreatePostRemovesUploadOnStoreFailure(t *testing.T) {
	repo := noopPostRepo()
	repo.createFn = func(context.Context, *models.Post) error { return errors.New("insert failed") }
	store := noopStore()
	svc := newPostService(repo, store, nil)

	_, err := svc.CreatePost(context.Background(), CreatePostInput{Viewer: alice(), Image: testPNG(t)})
	require.Error(t, err)
	assert.Len(t, store.removed, 1)
}

func TestPostService_DeletePost(t *testing.T) {
	imageURL := "http://minio:9000/Images/" + aliceID + "/a.jpg"

	t.Run("owner deletes post and image", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: aliceID, ImageURL: imageURL}, nil
		}
		deleted := uint(0)
		repo.deleteWithChildrenFn = func(_ context.Context, id uint) error {
			deleted = id
			return nil
		}
		store := noopStore()
		pub := &recordingPublisher{}

		err := newPostService(repo, store, pub).DeletePost(context.Background(), alice(), 5)
		require.NoError(t, err)
		assert.Equal(t, uint(5), deleted)
		assert.Equal(t, []string{imageURL}, store.removed)
		assert.Equal(t, []string{ChangePostDeleted}, pub.timeline)
	})

	t.Run("image removal failure is not fatal", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: aliceID, ImageURL: imageURL}, nil
		}
		store := noopStore()
		store.removeFn = func(context.Context, string) error { return errors.New("bucket gone") }

		err := newPostService(repo, store, nil).DeletePost(context.Background(), alice(), 5)
		assert.NoError(t, err)
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		repo := noopPostRepo()
		repo.deleteWithChildrenFn = func(context.Context, uint) error {
			t.Fatal("must not delete")
			return nil
		}
		store := noopStore()

		err := newPostService(repo, store, nil).DeletePost(context.Background(), models.Authenticated{ID: bobID}, 5)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeForbidden, appErr.Code)
		assert.Empty(t, store.removed)
	})

	t.Run("missing post", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}

		err := newPostService(repo, noopStore(), nil).DeletePost(context.Background(), alice(), 5)
		assert.Equal(t, 404, models.StatusFor(err))
	})
}

func TestPostService_LikePost(t *testing.T) {
	repo := noopPostRepo()
	repo.likeFn = func(context.Context, uint, string) error { return repository.ErrDuplicateReaction }
	svc := newPostService(repo, noopStore(), nil)

	err := svc.LikePost(context.Background(), alice(), 1)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)

	err = svc.LikePost(context.Background(), models.Anonymous{}, 1)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)

	assert.NoError(t, svc.UnlikePost(context.Background(), alice(), 1))
}

func TestPostService_GetPost(t *testing.T) {
	repo := noopPostRepo()
	repo.likedPostIDsFn = func(context.Context, string, []uint) ([]uint, error) { return []uint{3}, nil }
	svc := newPostService(repo, noopStore(), nil)

	view, err := svc.GetPost(context.Background(), alice(), 3)
	require.NoError(t, err)
	assert.Equal(t, uint(3), view.ID)
	assert.True(t, view.IsLiked)

	view, err = svc.GetPost(context.Background(), models.Anonymous{}, 3)
	require.NoError(t, err)
	assert.False(t, view.IsLiked)
}

func TestPostService_ListMapPins(t *testing.T) {
	repo := noopPostRepo()
	repo.listMapPinsFn = func(context.Context) ([]models.MapPin, error) {
		return []models.MapPin{{ID: 1, Latitude: 35, Longitude: 139}}, nil
	}

	pins, err := newPostService(repo, noopStore(), nil).ListMapPins(context.Background())
	require.NoError(t, err)
	assert.Len(t, pins, 1)
}
