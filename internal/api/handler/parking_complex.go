package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vinieshwan/parking-system/internal/apperr"
	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
	"github.com/vinieshwan/parking-system/internal/service"
)

type ParkingComplexHandler struct {
	parkingService *service.ParkingService
	log            logger.Logger
}

func NewParkingComplexHandler(ps *service.ParkingService, log logger.Logger) *ParkingComplexHandler {
	return &ParkingComplexHandler{parkingService: ps, log: log}
}

// GET /v1/parking-complex/get/:name
func (h *ParkingComplexHandler) GetByName(c *gin.Context) {
	pc, err := h.parkingService.GetComplexByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, pc)
}

// GET /v1/parking-complex/list
func (h *ParkingComplexHandler) List(c *gin.Context) {
	complexes, err := h.parkingService.ListComplexes(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, complexes)
}

// GET /v1/entry-points/list/:complexId
func (h *ParkingComplexHandler) ListEntryPoints(c *gin.Context) {
	complexID := c.Param("complexId")
	if !IsResourceID(complexID) {
		respondError(c, h.log, apperr.InvalidArgument("invalid parking complex id"))
		return
	}
	entryPoints, err := h.parkingService.ListEntryPoints(c.Request.Context(), complexID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, entryPoints)
}

// POST /v1/entry-points/add
func (h *ParkingComplexHandler) AddEntryPoint(c *gin.Context) {
	var dto domain.AddEntryPointDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondError(c, h.log, bindingError(err))
		return
	}
	ep, err := h.parkingService.AddEntryPoint(c.Request.Context(), dto)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, ep)
}
