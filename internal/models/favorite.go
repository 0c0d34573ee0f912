package models

import "time"

// Favorite records that a user liked a post. One row per (post, user).
type Favorite struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Favorite) TableName() string { return "favorites" }

// CommentFavorite records that a user liked a comment. One row per (comment, user).
type CommentFavorite struct {
	CommentID uint      `gorm:"primaryKey;autoIncrement:false" json:"comment_id"`
	UserID    string    `gorm:"primaryKey;type:uuid;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (CommentFavorite) TableName() string { return "comment_favorites" }
