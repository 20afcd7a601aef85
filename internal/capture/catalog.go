package capture

import "multasync/internal/models"

// DefaultCatalog returns the predefined infraction catalog shown at
// capture time. Officers can add ad-hoc concept/amount pairs on top of
// these entries.
func DefaultCatalog() []models.InfractionItem {
	return []models.InfractionItem{
		{Concept: "Estacionarse en lugar prohibido", Amount: 500},
		{Concept: "Exceso de velocidad", Amount: 1200},
		{Concept: "No respetar semáforo", Amount: 1500},
		{Concept: "Circular sin placas", Amount: 900},
		{Concept: "Estacionarse en rampa para discapacitados", Amount: 2000},
		{Concept: "Circular en sentido contrario", Amount: 1100},
		{Concept: "Uso de celular al conducir", Amount: 800},
		{Concept: "No portar licencia vigente", Amount: 600},
	}
}
