package iot

import (
	"context"
	"encoding/json"
	"strings"

	"gopkg.in/guregu/null.v4"

	"github.com/vinieshwan/parking-system/internal/apperr"
	"github.com/vinieshwan/parking-system/internal/domain"
)

// ParkingFlows is the slice of the parking service driven by gate kiosks.
type ParkingFlows interface {
	Park(ctx context.Context, slotID, entryPointID string, v domain.VehicleDetails) (*domain.ParkingSession, error)
	Unpark(ctx context.Context, d domain.UnparkDetails) (float64, error)
}

// ParseGateCommand decodes and validates a queue message body.
func ParseGateCommand(body string) (*domain.GateCommand, error) {
	var cmd domain.GateCommand
	if err := json.Unmarshal([]byte(body), &cmd); err != nil {
		return nil, apperr.InvalidArgument("gate command is not valid JSON")
	}
	cmd.PlateNumber = strings.TrimSpace(cmd.PlateNumber)
	if n := len(cmd.PlateNumber); n < 4 || n > 10 {
		return nil, apperr.InvalidArgument("plate number must have 4 to 10 characters")
	}

	switch cmd.Action {
	case domain.GateActionPark:
		if cmd.ParkingSlotID == "" || cmd.EntryPointID == "" {
			return nil, apperr.InvalidArgument("park command needs parkingSlotId and entryPointId")
		}
		if _, err := domain.ParseSizeClass(cmd.Type); err != nil {
			return nil, apperr.InvalidArgument("park command has an invalid vehicle type")
		}
	case domain.GateActionUnpark:
	default:
		return nil, apperr.InvalidArgument("unknown gate action")
	}
	return &cmd, nil
}

// Dispatch runs cmd against the parking flows.
func Dispatch(ctx context.Context, flows ParkingFlows, cmd *domain.GateCommand) error {
	switch cmd.Action {
	case domain.GateActionPark:
		vehicleType, err := domain.ParseSizeClass(cmd.Type)
		if err != nil {
			return apperr.InvalidArgument("invalid vehicle type")
		}
		_, err = flows.Park(ctx, cmd.ParkingSlotID, cmd.EntryPointID, domain.VehicleDetails{
			PlateNumber: cmd.PlateNumber,
			Type:        vehicleType,
			ParkTime:    null.TimeFromPtr(cmd.ParkTime),
		})
		return err
	case domain.GateActionUnpark:
		_, err := flows.Unpark(ctx, domain.UnparkDetails{
			PlateNumber: cmd.PlateNumber,
			UnparkTime:  null.TimeFromPtr(cmd.UnparkTime),
		})
		return err
	}
	return apperr.InvalidArgument("unknown gate action")
}

// isTerminal reports whether redelivering a failed message cannot help.
func isTerminal(err error) bool {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidArgument, apperr.KindNotFound, apperr.KindConflict:
		return true
	}
	return false
}
