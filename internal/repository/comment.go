// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"catspot/internal/models"
	"catspot/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository is the remote store seen by comment panels.
type CommentRepository interface {
	// ListByPost returns the post's comments oldest first with author and
	// favorite count joined in. IsLiked is always false.
	ListByPost(ctx context.Context, postID uint) ([]models.CommentView, error)
	LikedCommentIDs(ctx context.Context, viewerID string, commentIDs []uint) ([]uint, error)
	AddFavorite(ctx context.Context, commentID uint, viewerID string) error
	RemoveFavorite(ctx context.Context, commentID uint, viewerID string) error
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	// DeleteOwned deletes the comment only when viewerID wrote it.
	DeleteOwned(ctx context.Context, commentID uint, viewerID string) error
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

type commentRow struct {
	CommentID       uint
	PostID          uint
	UserID          string
	Content         string
	CreatedAt       time.Time
	AuthorProfileID *string
	AuthorName      *string
	AuthorAvatarURL *string
	LikeCount       int
}

const commentSelect = `comments.comment_id, comments.post_id, comments.user_id,
	comments.comment AS content, comments.created_at,
	users.user_id AS author_profile_id, users.name AS author_name, users.avatar_url AS author_avatar_url,
	(SELECT COUNT(*) FROM comment_favorites WHERE comment_favorites.comment_id = comments.comment_id) AS like_count`

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]models.CommentView, error) {
	defer observability.TrackQuery("list_by_post", "comments")()

	var rows []commentRow
	err := r.db.WithContext(ctx).
		Table("comments").
		Select(commentSelect).
		Joins("LEFT JOIN users ON users.user_id = comments.user_id").
		Where("comments.post_id = ?", postID).
		Order("comments.created_at ASC, comments.comment_id ASC").
		Scan(&rows).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_by_post")
		return nil, err
	}

	out := make([]models.CommentView, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.CommentView{
			ID:        row.CommentID,
			PostID:    row.PostID,
			AuthorID:  row.UserID,
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
			Author:    models.NewAuthor(row.AuthorName, row.AuthorAvatarURL, row.AuthorProfileID != nil, models.DefaultCommentAuthorName),
			LikeCount: row.LikeCount,
		})
	}
	r.log.LogRead(ctx, map[string]interface{}{"post_id": postID, "count": len(out)})
	return out, nil
}

func (r *commentRepository) LikedCommentIDs(ctx context.Context, viewerID string, commentIDs []uint) ([]uint, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}
	var liked []uint
	err := r.db.WithContext(ctx).
		Model(&models.CommentFavorite{}).
		Where("user_id = ? AND comment_id IN ?", viewerID, commentIDs).
		Pluck("comment_id", &liked).Error
	return liked, err
}

func (r *commentRepository) AddFavorite(ctx context.Context, commentID uint, viewerID string) error {
	fav := &models.CommentFavorite{CommentID: commentID, UserID: viewerID}
	if err := r.db.WithContext(ctx).Create(fav).Error; err != nil {
		return classifyReactionErr(err)
	}
	return nil
}

func (r *commentRepository) RemoveFavorite(ctx context.Context, commentID uint, viewerID string) error {
	return r.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, viewerID).
		Delete(&models.CommentFavorite{}).Error
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"comment_id": comment.ID, "post_id": comment.PostID})
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, "comment_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) DeleteOwned(ctx context.Context, commentID uint, viewerID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("comment_id = ? AND user_id = ?", commentID, viewerID).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Comment{}).Where("comment_id = ?", commentID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return models.NewNotFoundError("Comment", commentID)
			}
			return ErrNotOwner
		}
		return tx.Where("comment_id = ?", commentID).Delete(&models.CommentFavorite{}).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"comment_id": commentID})
	return nil
}
