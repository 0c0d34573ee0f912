package server

import (
	"io"
	"strconv"
	"strings"

	"catspot/internal/middleware"
	"catspot/internal/models"
	"catspot/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary Timeline
// @Description Every post newest first, with like state for the signed-in viewer
// @Tags posts
// @Produce json
// @Success 200 {array} models.PostView
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListTimeline(c.UserContext(), middleware.ViewerFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetMapPins handles GET /api/posts/map
// @Summary Map pins
// @Tags posts
// @Produce json
// @Success 200 {array} models.MapPin
// @Router /posts/map [get]
func (s *Server) GetMapPins(c *fiber.Ctx) error {
	pins, err := s.postService.ListMapPins(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pins)
}

// GetPost handles GET /api/posts/:id
// @Summary Single post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostView
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), middleware.ViewerFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Description Upload a cat photo with an optional caption and location
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Photo"
// @Param caption formData string false "Caption"
// @Param latitude formData number false "Latitude"
// @Param longitude formData number false "Longitude"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	lat, err := optionalFloat(c.FormValue("latitude"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("latitude must be a number"))
	}
	lng, err := optionalFloat(c.FormValue("longitude"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("longitude must be a number"))
	}

	var image []byte
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("image could not be read"))
		}
		image, err = io.ReadAll(io.LimitReader(f, bodyLimit))
		_ = f.Close()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("image could not be read"))
		}
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		Viewer:    middleware.ViewerFrom(c),
		Caption:   c.FormValue("caption"),
		Latitude:  lat,
		Longitude: lng,
		Image:     image,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete own post
// @Tags posts
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), middleware.ViewerFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles PUT /api/posts/:id/like
// @Summary Like post
// @Tags posts
// @Param id path int true "Post ID"
// @Success 204
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/like [put]
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.LikePost(c.UserContext(), middleware.ViewerFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.UnlikePost(c.UserContext(), middleware.ViewerFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func optionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
