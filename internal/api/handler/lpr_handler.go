package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
	"github.com/vinieshwan/parking-system/internal/service"
)

type LPRHandler struct {
	lprService *service.LPRService
	log        logger.Logger
}

func NewLPRHandler(lprService *service.LPRService, log logger.Logger) *LPRHandler {
	return &LPRHandler{lprService: lprService, log: log}
}

// POST /v1/lpr/recognize
func (h *LPRHandler) Recognize(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindingError(err))
		return
	}

	resp, err := h.lprService.Recognize(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, resp)
}
