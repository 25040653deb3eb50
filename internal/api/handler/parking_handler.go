package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4"

	"github.com/vinieshwan/parking-system/internal/apperr"
	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
	"github.com/vinieshwan/parking-system/internal/service"
)

type ParkingSessionHandler struct {
	parkingService *service.ParkingService
	log            logger.Logger
}

func NewParkingSessionHandler(ps *service.ParkingService, log logger.Logger) *ParkingSessionHandler {
	return &ParkingSessionHandler{parkingService: ps, log: log}
}

// POST /v1/parking-history/park
func (h *ParkingSessionHandler) Park(c *gin.Context) {
	var dto domain.ParkRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondError(c, h.log, bindingError(err))
		return
	}
	vehicleType, err := domain.ParseSizeClass(dto.Type)
	if err != nil {
		respondError(c, h.log, apperr.InvalidArgument("invalid vehicle type"))
		return
	}

	session, err := h.parkingService.Park(c.Request.Context(), dto.ParkingSlotID, dto.EntryPointID, domain.VehicleDetails{
		PlateNumber: dto.PlateNumber,
		Type:        vehicleType,
		ParkTime:    null.TimeFromPtr(dto.ParkTime),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, session)
}

// POST /v1/parking-history/unpark
func (h *ParkingSessionHandler) Unpark(c *gin.Context) {
	var dto domain.UnparkRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondError(c, h.log, bindingError(err))
		return
	}

	payable, err := h.parkingService.Unpark(c.Request.Context(), domain.UnparkDetails{
		PlateNumber: dto.PlateNumber,
		UnparkTime:  null.TimeFromPtr(dto.UnparkTime),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, domain.UnparkResponseDTO{Payable: payable})
}

// GET /v1/parking-history/:plateNumber?limit=
func (h *ParkingSessionHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, h.log, apperr.InvalidArgument("limit must be a positive integer"))
			return
		}
		limit = n
	}

	sessions, err := h.parkingService.History(c.Request.Context(), c.Param("plateNumber"), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, sessions)
}
