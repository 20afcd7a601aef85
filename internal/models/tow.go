package models

import (
	"strconv"
	"time"
)

// TowDraft is the capture-time input for a tow-truck request.
type TowDraft struct {
	Plate       string   `json:"placa"`
	VehicleType string   `json:"tipoVehiculo"`
	Reason      string   `json:"motivo"`
	Address     string   `json:"direccion"`
	Latitude    *float64 `json:"latitud"`
	Longitude   *float64 `json:"longitud"`
}

// PendingTowRequest is the local copy of a submitted tow request. Unlike
// citations these records are never drained back to the server; they
// only feed the same-day request list.
type PendingTowRequest struct {
	LocalID     string    `json:"localId"`
	Plate       string    `json:"placa"`
	VehicleType string    `json:"tipoVehiculo"`
	Reason      string    `json:"motivo"`
	Address     string    `json:"direccion"`
	Latitude    *float64  `json:"latitud"`
	Longitude   *float64  `json:"longitud"`
	OfficerID   string    `json:"agenteId"`
	RequestedAt time.Time `json:"solicitadaEn"`
}

// NewPendingTowRequest builds the local record for a tow request.
func NewPendingTowRequest(draft TowDraft, officerID string, now time.Time) *PendingTowRequest {
	return &PendingTowRequest{
		LocalID:     strconv.FormatInt(now.UnixNano(), 10),
		Plate:       NormalizePlate(draft.Plate),
		VehicleType: draft.VehicleType,
		Reason:      draft.Reason,
		Address:     draft.Address,
		Latitude:    draft.Latitude,
		Longitude:   draft.Longitude,
		OfficerID:   officerID,
		RequestedAt: now,
	}
}
