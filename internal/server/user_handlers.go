package server

import (
	"catspot/internal/middleware"
	"catspot/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
// @Summary Current profile
// @Tags users
// @Produce json
// @Success 200 {object} models.Profile
// @Security BearerAuth
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.GetMyProfile(c.UserContext(), middleware.ViewerFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Rename current profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{name=string} true "Display name"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	profile, err := s.profileService.UpdateMyProfile(c.UserContext(), middleware.ViewerFrom(c), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}
