// Package validation checks and normalizes user-supplied text before it is stored.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MaxCommentLength = 1000
	MaxCaptionLength = 500
	MaxNameLength    = 50
)

var validate = validator.New()

// CommentInput is the body of a new comment.
type CommentInput struct {
	Content string `validate:"required,max=1000"`
}

// PostInput carries the text fields of a new post. Coordinates come as a pair.
type PostInput struct {
	Caption   string   `validate:"max=500"`
	Latitude  *float64 `validate:"omitempty,latitude"`
	Longitude *float64 `validate:"omitempty,longitude"`
}

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	Name string `validate:"required,max=50"`
}

// Comment normalizes and validates comment text, returning the text to store.
func Comment(content string) (string, error) {
	in := CommentInput{Content: NormalizeText(content)}
	if err := Struct(in); err != nil {
		return "", err
	}
	return in.Content, nil
}

// Post normalizes the caption and validates the whole input in place.
func Post(in *PostInput) error {
	in.Caption = NormalizeText(in.Caption)
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return errors.New("latitude and longitude must be given together")
	}
	return Struct(in)
}

// ProfileName normalizes and validates a display name.
func ProfileName(name string) (string, error) {
	in := ProfileInput{Name: NormalizeText(name)}
	if err := Struct(in); err != nil {
		return "", err
	}
	return in.Name, nil
}

// Struct runs tag validation and flattens the first failure into a readable error.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return describe(verrs[0])
}

func describe(fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	case "latitude", "longitude":
		return fmt.Errorf("%s is out of range", field)
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}
