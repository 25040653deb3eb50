package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vinieshwan/parking-system/internal/apperr"
	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
	"github.com/vinieshwan/parking-system/internal/service"
)

type ParkingSlotHandler struct {
	parkingService *service.ParkingService
	log            logger.Logger
}

func NewParkingSlotHandler(ps *service.ParkingService, log logger.Logger) *ParkingSlotHandler {
	return &ParkingSlotHandler{parkingService: ps, log: log}
}

// GET /v1/parking-slot/get/:complexId/:entryPointId/:type
func (h *ParkingSlotHandler) FindSlot(c *gin.Context) {
	var dto domain.FindSlotDTO
	if err := c.ShouldBindUri(&dto); err != nil {
		respondError(c, h.log, bindingError(err))
		return
	}
	vehicleType, err := domain.ParseSizeClass(dto.Type)
	if err != nil {
		respondError(c, h.log, apperr.InvalidArgument("invalid vehicle type"))
		return
	}

	slot, err := h.parkingService.FindSlot(c.Request.Context(), dto.ParkingComplexID, dto.EntryPointID, vehicleType)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if slot == nil {
		respondError(c, h.log, apperr.NotFound("no available parking slot"))
		return
	}
	respond(c, http.StatusOK, slot)
}
