package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/goalkeeper/internal/server/auth"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error(c.Request.Context(), "password hash failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	u, err := h.store.CreateUser(c.Request.Context(), req.Email, hash)
	if err != nil {
		if errors.Is(err, shared.ErrEmailAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.log.Error(c.Request.Context(), "user create failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.issueToken(c, http.StatusCreated, u.ID, u.Email)
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.store.UserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		h.log.Error(c.Request.Context(), "user lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	h.issueToken(c, http.StatusOK, u.ID, u.Email)
}

// deleteUser removes the account and, through the schema cascade, every
// document it owns.
func (h *Handler) deleteUser(c *gin.Context) {
	uid := userID(c)
	if err := h.store.DeleteUser(c.Request.Context(), uid); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		h.log.Error(c.Request.Context(), "user delete failed", "user", uid, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) issueToken(c *gin.Context, status int, uid, email string) {
	token, err := auth.GenerateToken(uid, h.secret, h.tokenTTL)
	if err != nil {
		h.log.Error(c.Request.Context(), "token generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, tokenResponse{Token: token, UserID: uid, Email: email})
}
