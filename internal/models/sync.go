package models

// SyncOutcome is the per-citation result of one drain pass. It is never
// persisted; the queue itself is the durable state.
type SyncOutcome struct {
	Success      bool   `json:"success"`
	Plate        string `json:"placa"`
	Folio        string `json:"folio,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

// BatchSyncResult aggregates the outcomes of one synchronization pass.
type BatchSyncResult struct {
	OverallSuccess bool          `json:"overallSuccess"`
	Message        string        `json:"message"`
	Synced         int           `json:"synced"`
	Failed         int           `json:"failed"`
	Outcomes       []SyncOutcome `json:"outcomes"`
}
