package models

import "time"

// Session identifies the logged-in officer. It is passed explicitly to
// the capture flow and queue service instead of living in a global.
type Session struct {
	OfficerID   string    `json:"agenteId"`
	OfficerName string    `json:"nombre"`
	Role        string    `json:"rol"`
	Token       string    `json:"token"`
	LoggedInAt  time.Time `json:"loggedInAt"`
}
