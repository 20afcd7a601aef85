package models

import (
	"strconv"
	"strings"
	"time"

	"multasync/internal/constants"
)

// CitationStatusPending is the status every citation carries while it
// sits in the local queue.
const CitationStatusPending = "pending"

// InfractionItem is a single infraction selected for a citation, either
// from the predefined catalog or entered ad hoc by the officer.
type InfractionItem struct {
	Concept string  `json:"concepto"`
	Amount  float64 `json:"monto"`
}

// CitationDraft is the capture-time input assembled by the UI shell
// before a citation is submitted or queued.
type CitationDraft struct {
	Plate             string           `json:"placa"`
	Infractions       []InfractionItem `json:"infracciones"`
	Description       string           `json:"descripcion"`
	Address           string           `json:"direccion"`
	Latitude          *float64         `json:"latitud"`
	Longitude         *float64         `json:"longitud"`
	Photos            []string         `json:"fotos"`
	OfficerSignature  *string          `json:"firmaAgente"`
	OffenderSignature *string          `json:"firmaInfractor"`
}

// TotalAmount sums all selected infraction amounts.
func (d CitationDraft) TotalAmount() float64 {
	var total float64
	for _, inf := range d.Infractions {
		total += inf.Amount
	}
	return total
}

// InfractionSummary joins the selected infraction concepts into the
// single description field the API expects.
func (d CitationDraft) InfractionSummary() string {
	concepts := make([]string, 0, len(d.Infractions))
	for _, inf := range d.Infractions {
		concepts = append(concepts, inf.Concept)
	}
	return strings.Join(concepts, ", ")
}

// PendingCitation is a citation captured while offline, persisted in the
// offline_multas collection until the server acknowledges it.
type PendingCitation struct {
	LocalID           string   `json:"localId"`
	Folio             string   `json:"folio"`
	Plate             string   `json:"placa"`
	Infraction        string   `json:"infraccion"`
	BaseAmount        float64  `json:"monto"`
	FinalAmount       float64  `json:"montoFinal"`
	Description       string   `json:"descripcion"`
	Address           string   `json:"direccion"`
	Latitude          *float64 `json:"latitud"`
	Longitude         *float64 `json:"longitud"`
	OfficerID         string   `json:"agenteId"`
	OfficerSignature  *string  `json:"firmaAgente"`
	OffenderSignature *string  `json:"firmaInfractor"`
	Photos            []string `json:"fotos"`
	NoPhotos          bool     `json:"sinFotos"`

	SavedAt   time.Time `json:"savedAt"`
	CreatedAt time.Time `json:"createdAt"`
	Synced    bool      `json:"synced"`
	Status    string    `json:"status"`
	IsOffline bool      `json:"isOffline"`
}

// NewPendingCitation builds the queued record from a draft. All capture
// invariants live here: plate normalization, single folio assignment,
// the photo cap, and signature preservation.
func NewPendingCitation(draft CitationDraft, officerID string, now time.Time) *PendingCitation {
	photos := draft.Photos
	if len(photos) > constants.MaxCitationPhotos {
		photos = photos[:constants.MaxCitationPhotos]
	}
	// Copy so later mutation of the draft cannot reach the record.
	kept := make([]string, len(photos))
	copy(kept, photos)

	total := draft.TotalAmount()

	return &PendingCitation{
		LocalID:           strconv.FormatInt(now.UnixNano(), 10),
		Folio:             NewFolio(now),
		Plate:             NormalizePlate(draft.Plate),
		Infraction:        draft.InfractionSummary(),
		BaseAmount:        total,
		FinalAmount:       total,
		Description:       draft.Description,
		Address:           draft.Address,
		Latitude:          draft.Latitude,
		Longitude:         draft.Longitude,
		OfficerID:         officerID,
		OfficerSignature:  draft.OfficerSignature,
		OffenderSignature: draft.OffenderSignature,
		Photos:            kept,
		SavedAt:           now,
		CreatedAt:         now,
		Synced:            false,
		Status:            CitationStatusPending,
		IsOffline:         true,
	}
}

// DropPhotos clears photo evidence after a storage-capacity failure.
// Signatures are deliberately untouched.
func (c *PendingCitation) DropPhotos() {
	c.Photos = []string{}
	c.NoPhotos = true
}

// NewFolio derives the human-readable citation reference from the
// capture timestamp. Format: MUL-<base36 millisecond timestamp>.
func NewFolio(now time.Time) string {
	return constants.FolioPrefix + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
}

// NormalizePlate uppercases and trims a license plate.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
