package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/peacelink/peacelink/internal/auth"
	"github.com/peacelink/peacelink/internal/middleware"
	"github.com/peacelink/peacelink/internal/services"
	"github.com/peacelink/peacelink/pkg/errors"
	"github.com/peacelink/peacelink/pkg/response"
)

// AuthHandler exposes registration, login, and identity endpoints.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(users *services.UserService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

// Register creates a new account and returns an access token.
func (h *AuthHandler) Register(c *gin.Context) {
	var payload services.RegisterInput
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.users.Register(requestContext(c), payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Role: user.Role})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user, "token": token})
}

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var payload struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), payload.Username, payload.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Role: user.Role})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user, "token": token})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, user)
}
