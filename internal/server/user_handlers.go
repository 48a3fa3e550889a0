package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rootword-dev/rootword/internal/users"
)

// CreateUserRequest represents a request to create a new user
type CreateUserRequest struct {
	Username string `json:"username" binding:"required" validate:"min=3,max=32"`
	Password string `json:"password" binding:"required" validate:"min=6,max=32"`
	Role     string `json:"role" validate:"role"`
}

// UserPage is a page of users
type UserPage struct {
	List     []*UserDetail `json:"list"`
	Total    int64         `json:"total"`
	PageNum  int           `json:"page_num"`
	PageSize int           `json:"page_size"`
}

func (s *Server) respondUserError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, users.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, users.ErrUsernameTaken),
		errors.Is(err, users.ErrInvalidRole),
		errors.Is(err, users.ErrSelfDelete),
		errors.Is(err, users.ErrPasswordLength):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error().Err(err).Msg("Failed to " + action)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "Create user request"
// @Success 200 {object} Response
// @Router /api/user/create [post]
func (s *Server) createUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.usersService.Create(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		s.respondUserError(c, err, "create user")
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Str("created_by", sessionData.UserID).
		Msg("User created")

	respondOK(c, "user created", newUserDetail(user))
}

// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page_num query int false "Page number"
// @Param page_size query int false "Page size"
// @Param username query string false "Username filter"
// @Success 200 {object} Response
// @Router /api/user/list [get]
func (s *Server) listUsers(c *gin.Context) {
	pageNum, _ := strconv.Atoi(c.DefaultQuery("page_num", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	page, err := s.usersService.List(c.Request.Context(), users.ListParams{
		PageNum:  pageNum,
		PageSize: pageSize,
		Username: c.Query("username"),
	})
	if err != nil {
		s.respondUserError(c, err, "list users")
		return
	}

	out := UserPage{
		List:     make([]*UserDetail, len(page.List)),
		Total:    page.Total,
		PageNum:  page.PageNum,
		PageSize: page.PageSize,
	}
	for i := range page.List {
		out.List[i] = newUserDetail(&page.List[i])
	}

	respondOK(c, "success", out)
}

// @Summary Delete user
// @Description Delete a user (cannot delete self)
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} Response
// @Router /api/user/delete/{id} [delete]
func (s *Server) deleteUser(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	if err := s.usersService.Delete(c.Request.Context(), c.Param("id"), sessionData.UserID); err != nil {
		s.respondUserError(c, err, "delete user")
		return
	}

	respondOK(c, "user deleted", nil)
}

// @Summary Reset password
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param new_password query string true "New password"
// @Success 200 {object} Response
// @Router /api/user/reset-password/{id} [post]
func (s *Server) resetPassword(c *gin.Context) {
	newPassword := c.Query("new_password")
	if newPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new_password is required"})
		return
	}

	if err := s.usersService.ResetPassword(c.Request.Context(), c.Param("id"), newPassword); err != nil {
		s.respondUserError(c, err, "reset password")
		return
	}

	respondOK(c, "password reset", nil)
}
