package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edunexus/internal/service"
)

// UserHandler expone el perfil del usuario autenticado.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
}

func NewUserHandler(logger *zap.Logger, userServ *service.UserService) *UserHandler {
	return &UserHandler{logger: logger, userServ: userServ}
}

// Me maneja GET /api/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	profile, err := h.userServ.Me(c.Request.Context(), principal(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": profile})
}

// UpdateProfile maneja POST /api/users/profile (multipart: name, description, photo).
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	photo, closer, err := formFile(c, "photo", maxImageSize)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer closeQuietly(closer)

	user, err := h.userServ.UpdateProfile(c.Request.Context(), principal(c), service.ProfileInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Photo:       photo,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}
