package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vinieshwan/parking-system/internal/api/middleware"
	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
	"github.com/vinieshwan/parking-system/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	log         logger.Logger
}

func NewAuthHandler(as *service.AuthService, log logger.Logger) *AuthHandler {
	return &AuthHandler{authService: as, log: log}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var dto domain.RegisterUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondError(c, h.log, bindingError(err))
		return
	}

	user, err := h.authService.Register(c.Request.Context(), dto, c.GetString(middleware.UserRoleKey))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var dto domain.LoginUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondError(c, h.log, bindingError(err))
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), dto)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, resp)
}
