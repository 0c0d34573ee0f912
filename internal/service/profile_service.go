package service

import (
	"context"
	"errors"

	"catspot/internal/models"
	"catspot/internal/repository"
	"catspot/internal/validation"
)

type ProfileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// GetMyProfile returns the viewer's profile. A viewer without a row yet gets
// an empty profile rather than 404.
func (s *ProfileService) GetMyProfile(ctx context.Context, viewer models.Viewer) (*models.Profile, error) {
	viewerID, ok := models.ViewerID(viewer)
	if !ok {
		return nil, models.NewUnauthorizedError("Sign in to view your profile")
	}
	profile, err := s.profileRepo.GetByID(ctx, viewerID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return &models.Profile{ID: viewerID}, nil
		}
		return nil, err
	}
	return profile, nil
}

// UpdateMyProfile sets the viewer's display name, creating the row if needed.
func (s *ProfileService) UpdateMyProfile(ctx context.Context, viewer models.Viewer, name string) (*models.Profile, error) {
	viewerID, ok := models.ViewerID(viewer)
	if !ok {
		return nil, models.NewUnauthorizedError("Sign in to edit your profile")
	}
	clean, err := validation.ProfileName(name)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	profile, err := s.profileRepo.UpsertName(ctx, viewerID, clean)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return profile, nil
}
