package multas

// CreateCitationRequest is the wire payload for POST /api/multas. Field
// names follow the municipal API contract.
type CreateCitationRequest struct {
	Folio             string   `json:"folio,omitempty"`
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
}

// CitationRecord is the server-side citation representation.
type CitationRecord struct {
	ID         int64    `json:"id"`
	Folio      string   `json:"folio"`
	Evidencias []string `json:"evidencias,omitempty"`
}

// CreateCitationResponse is the envelope returned by POST /api/multas.
// The server can answer 200 with success=false; callers must check the
// flag, not just the transport error.
type CreateCitationResponse struct {
	Success bool            `json:"success"`
	Multa   *CitationRecord `json:"multa,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// CreateTowRequestRequest is the wire payload for POST /api/solicitudes-grua.
type CreateTowRequestRequest struct {
	Plate       string   `json:"placa"`
	VehicleType string   `json:"tipoVehiculo"`
	Reason      string   `json:"motivo"`
	Address     string   `json:"direccion"`
	Latitude    *float64 `json:"latitud"`
	Longitude   *float64 `json:"longitud"`
	OfficerID   string   `json:"agenteId"`
}

// CreateTowRequestResponse is the envelope returned by POST /api/solicitudes-grua.
type CreateTowRequestResponse struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}
