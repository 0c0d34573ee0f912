// Package models contains data structures for the application's domain models.
package models

import "time"

// Post is a single cat sighting: a photo with caption and optional location.
type Post struct {
	ID        uint      `gorm:"column:post_id;primaryKey" json:"post_id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Caption   string    `gorm:"type:text;not null;default:''" json:"caption"`
	ImageURL  string    `gorm:"not null;default:''" json:"image_url"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Post) TableName() string { return "posts" }

// HasLocation reports whether both coordinates are set.
func (p Post) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// PostView is a post as shown on the timeline, joined with its author and
// reaction state for the current viewer.
type PostView struct {
	ID           uint      `json:"id"`
	AuthorID     string    `json:"author_id"`
	Caption      string    `json:"caption"`
	ImageURL     string    `json:"image_url"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Author       *Author   `json:"author,omitempty"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	IsLiked      bool      `json:"is_liked"`
}

// MapPin is the minimal projection of a located post used by the map view.
type MapPin struct {
	ID        uint    `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	ImageURL  string  `json:"image_url"`
	Caption   string  `json:"caption"`
}
