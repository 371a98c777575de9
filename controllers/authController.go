package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"meriawaaz-be/models"
	"meriawaaz-be/repository"
	authUtils "meriawaaz-be/utils"
)

// RegisterUser handles user registration
func (h *Handler) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	ctx := c.Request.Context()
	exists, err := h.users.EmailExists(ctx, input.Email)
	if err != nil {
		h.internalError(c, "Something went wrong", err)
		return
	}
	if exists {
		fail(c, http.StatusBadRequest, "User with this email already exists")
		return
	}

	user := &models.User{Name: input.Name, Email: input.Email, Password: input.Password}
	if err := user.HashPassword(); err != nil {
		h.internalError(c, "Something went wrong", err)
		return
	}

	if _, err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			fail(c, http.StatusBadRequest, "User with this email already exists")
			return
		}
		h.internalError(c, "Something went wrong", err)
		return
	}

	token, ok := h.issueToken(c, user)
	if !ok {
		return
	}
	h.log.Infow("user registered", "user_id", user.ID)
	respond(c, http.StatusCreated, gin.H{"user": user, "token": token}, "Registration successful")
}

// LoginUser handles user login
func (h *Handler) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.internalError(c, "Something went wrong", err)
		return
	}
	if user == nil || !user.ComparePassword(input.Password) {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, ok := h.issueToken(c, user)
	if !ok {
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user, "token": token}, "Login successful")
}

// GetMe returns the caller's identity together with the stored profile, if any.
func (h *Handler) GetMe(c *gin.Context) {
	identity := currentIdentity(c)

	user, err := h.users.GetByID(c.Request.Context(), identity.UID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.internalError(c, "Failed to retrieve user", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"identity": identity, "profile": user}, "User retrieved successfully")
}

// LogoutUser clears the auth cookie.
func (h *Handler) LogoutUser(c *gin.Context) {
	h.setAuthCookie(c, "", -1)
	respond(c, http.StatusOK, nil, "Logged out successfully")
}

func (h *Handler) issueToken(c *gin.Context, user *models.User) (string, bool) {
	token, err := h.tokens.GenerateToken(authUtils.Identity{
		UID:   user.ID,
		Email: user.Email,
		Phone: user.Phone,
		Name:  user.Name,
	})
	if err != nil {
		h.internalError(c, "Something went wrong", err)
		return "", false
	}
	h.setAuthCookie(c, token, int(h.opts.TokenTTL.Seconds()))
	return token, true
}

func (h *Handler) setAuthCookie(c *gin.Context, value string, maxAge int) {
	// Cross-site cookies need SameSite=None, which browsers only accept
	// together with Secure.
	sameSite := http.SameSiteLaxMode
	if h.opts.SecureCookies {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   h.opts.SecureCookies,
		HttpOnly: true,
		SameSite: sameSite,
	})
}
