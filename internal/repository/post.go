package repository

import (
	"context"
	"errors"
	"time"

	"catspot/internal/models"
	"catspot/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// GetView returns one post joined with author and counts. IsLiked is always false.
	GetView(ctx context.Context, id uint) (*models.PostView, error)
	// ListTimeline returns posts newest first with author and counts. IsLiked is always false.
	ListTimeline(ctx context.Context, limit int) ([]models.PostView, error)
	ListMapPins(ctx context.Context) ([]models.MapPin, error)
	LikedPostIDs(ctx context.Context, viewerID string, postIDs []uint) ([]uint, error)
	Like(ctx context.Context, postID uint, viewerID string) error
	Unlike(ctx context.Context, postID uint, viewerID string) error
	// DeleteWithChildren removes the post with its comments and reactions.
	DeleteWithChildren(ctx context.Context, id uint) error
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

type postRow struct {
	PostID          uint
	UserID          string
	Caption         string
	ImageURL        string
	Latitude        *float64
	Longitude       *float64
	CreatedAt       time.Time
	AuthorProfileID *string
	AuthorName      *string
	AuthorAvatarURL *string
	LikeCount       int
	CommentCount    int
}

func (row postRow) view() models.PostView {
	return models.PostView{
		ID:           row.PostID,
		AuthorID:     row.UserID,
		Caption:      row.Caption,
		ImageURL:     row.ImageURL,
		Latitude:     row.Latitude,
		Longitude:    row.Longitude,
		CreatedAt:    row.CreatedAt,
		Author:       models.NewAuthor(row.AuthorName, row.AuthorAvatarURL, row.AuthorProfileID != nil, models.DefaultPostAuthorName),
		LikeCount:    row.LikeCount,
		CommentCount: row.CommentCount,
	}
}

// postDetails selects posts with their author and counts in a single query.
func (r *postRepository) postDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("posts").
		Select(`posts.post_id, posts.user_id, posts.caption, posts.image_url,
			posts.latitude, posts.longitude, posts.created_at,
			users.user_id AS author_profile_id, users.name AS author_name, users.avatar_url AS author_avatar_url,
			(SELECT COUNT(*) FROM favorites WHERE favorites.post_id = posts.post_id) AS like_count,
			(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.post_id) AS comment_count`).
		Joins("LEFT JOIN users ON users.user_id = posts.user_id")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "user_id": post.UserID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, "post_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetView(ctx context.Context, id uint) (*models.PostView, error) {
	defer observability.TrackQuery("get_view", "posts")()

	var rows []postRow
	if err := r.postDetails(ctx).Where("posts.post_id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		r.log.LogError(ctx, err, "get_view")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, models.NewNotFoundError("Post", id)
	}
	v := rows[0].view()
	return &v, nil
}

func (r *postRepository) ListTimeline(ctx context.Context, limit int) ([]models.PostView, error) {
	defer observability.TrackQuery("list_timeline", "posts")()

	q := r.postDetails(ctx).Order("posts.created_at DESC, posts.post_id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []postRow
	if err := q.Scan(&rows).Error; err != nil {
		r.log.LogError(ctx, err, "list_timeline")
		return nil, err
	}

	out := make([]models.PostView, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.view())
	}
	return out, nil
}

func (r *postRepository) ListMapPins(ctx context.Context) ([]models.MapPin, error) {
	var pins []models.MapPin
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("post_id AS id, latitude, longitude, image_url, caption").
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Order("created_at DESC").
		Scan(&pins).Error
	return pins, err
}

func (r *postRepository) LikedPostIDs(ctx context.Context, viewerID string, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var liked []uint
	err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
		Pluck("post_id", &liked).Error
	return liked, err
}

func (r *postRepository) Like(ctx context.Context, postID uint, viewerID string) error {
	if err := r.db.WithContext(ctx).Create(&models.Favorite{PostID: postID, UserID: viewerID}).Error; err != nil {
		return classifyReactionErr(err)
	}
	return nil
}

func (r *postRepository) Unlike(ctx context.Context, postID uint, viewerID string) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, viewerID).
		Delete(&models.Favorite{}).Error
}

func (r *postRepository) DeleteWithChildren(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("comment_id").Where("post_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentFavorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		res := tx.Where("post_id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"post_id": id})
	return nil
}
