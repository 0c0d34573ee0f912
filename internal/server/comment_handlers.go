package server

import (
	"catspot/internal/middleware"
	"catspot/internal/models"
	"catspot/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments returns the comments of a post in the requested order (public).
// @Summary List comments
// @Description sort=popular (most liked first) or sort=new
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Param sort query string false "popular or new"
// @Success 200 {array} models.CommentView
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comments, err := s.commentService.ListComments(c.UserContext(), middleware.ViewerFrom(c), postID,
		service.ParseSortMode(c.Query("sort")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment creates a comment on a post (protected)
// @Summary Create comment
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{content=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	created, err := s.commentService.CreateComment(c.UserContext(), middleware.ViewerFrom(c), postID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// LikeComment handles PUT /api/comments/:commentId/like
func (s *Server) LikeComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	if err := s.commentService.LikeComment(c.UserContext(), middleware.ViewerFrom(c), commentID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnlikeComment handles DELETE /api/comments/:commentId/like
func (s *Server) UnlikeComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	if err := s.commentService.UnlikeComment(c.UserContext(), middleware.ViewerFrom(c), commentID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteComment deletes one of the viewer's own comments (protected)
// @Summary Delete own comment
// @Tags comments
// @Param commentId path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	if err := s.commentService.DeleteComment(c.UserContext(), middleware.ViewerFrom(c), commentID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
