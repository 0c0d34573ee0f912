package models

import "time"

// Comment is the stored comment row. The text lives in the "comment" column.
type Comment struct {
	ID        uint      `gorm:"column:comment_id;primaryKey" json:"comment_id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Content   string    `gorm:"column:comment;type:text;not null" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string { return "comments" }

// CommentView is a comment as displayed in a comment panel.
//
// LikeCount is the number of favorite rows at fetch time. It only diverges from
// that while an optimistic reaction is in flight.
type CommentView struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Author   `json:"author,omitempty"`
	LikeCount int       `json:"like_count"`
	IsLiked   bool      `json:"is_liked"`
}

// Author is the public part of a profile attached to posts and comments.
type Author struct {
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}
