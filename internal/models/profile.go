package models

import "time"

const (
	// DefaultCommentAuthorName is shown for comment authors whose profile has no name.
	DefaultCommentAuthorName = "名無しさん"
	// DefaultPostAuthorName is shown for post authors whose profile has no name.
	DefaultPostAuthorName = "unknown"
)

// Profile is the public profile row keyed by the auth provider's user id.
type Profile struct {
	ID        string    `gorm:"column:user_id;primaryKey;type:uuid" json:"user_id"`
	Name      *string   `gorm:"size:100" json:"name"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "users" }

// NewAuthor builds the author shown next to content. A nil result means the
// profile join produced nothing; an empty name falls back to fallbackName.
func NewAuthor(name, avatarURL *string, found bool, fallbackName string) *Author {
	if !found {
		return nil
	}
	a := &Author{Name: fallbackName, AvatarURL: avatarURL}
	if name != nil && *name != "" {
		a.Name = *name
	}
	return a
}
