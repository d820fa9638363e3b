package handlers

import (
	"net/http"

	"github.com/authrouter/authrouter/internal/models"
	"github.com/authrouter/authrouter/internal/users"
	"github.com/authrouter/authrouter/pkg/logger"
	"github.com/authrouter/authrouter/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// SetProfileRequest is the body of POST /api/profile/set
type SetProfileRequest struct {
	ClientID string `json:"clientId" form:"clientId" binding:"required"`
	Image    string `json:"image" form:"image"`
}

type ProfileHandler struct {
	usersSvc *users.Service
}

func NewProfileHandler(u *users.Service) *ProfileHandler {
	return &ProfileHandler{usersSvc: u}
}

// Register mounts the profile routes. gate guards the write endpoint; extra
// middlewares (rate limiting) run after it so they can key on the user id.
func (h *ProfileHandler) Register(rg *gin.RouterGroup, gate gin.HandlerFunc, extra ...gin.HandlerFunc) {
	api := rg.Group("/api")
	gated := append([]gin.HandlerFunc{gate}, extra...)
	api.POST("/profile/set", append(gated, h.SetProfile)...)
	api.GET("/auth", append(append([]gin.HandlerFunc{}, extra...), h.CurrentIdentity)...)
}

// SetProfile updates the image of the row named by clientId. The id is taken
// from the body, not from the token.
func (h *ProfileHandler) SetProfile(c *gin.Context) {
	var req SetProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.usersSvc.SetProfile(c.Request.Context(), req.ClientID, req.Image); err != nil {
		logger.Errorf("set profile: %v", err)
		c.Status(http.StatusNotFound)
		return
	}
	logger.Debugf("profile updated by %s", middleware.UserID(c))
	c.Status(http.StatusOK)
}

// CurrentIdentity reports the signed-in user from the framework session.
func (h *ProfileHandler) CurrentIdentity(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil || sess.User == nil {
		c.JSON(http.StatusOK, gin.H{"status": http.StatusUnauthorized})
		return
	}
	u, err := h.usersSvc.GetByID(c.Request.Context(), sess.User.ID)
	if err != nil {
		logger.Errorf("current identity: %v", err)
		c.Status(http.StatusNotFound)
		return
	}
	if u == nil {
		// session outlived the row: report the session identity with no profile
		u = &models.User{ID: sess.User.ID, Provider: sess.User.Provider}
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       u.ID,
		"provider": u.Provider,
		"status":   http.StatusOK,
		"profile":  u.ProfileOrDefault(),
	})
}
