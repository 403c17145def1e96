package prescription

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meddoc/clinic-api/internal/model"
)

// Draft is an in-progress prescription under review. It lives in memory
// until saved or abandoned; only the saved aggregate is persisted.
type Draft struct {
	mu sync.Mutex

	ID          uuid.UUID                `json:"id"`
	PatientID   uuid.UUID                `json:"patient_id,omitempty"`
	PatientName string                   `json:"patient_name"`
	PatientType model.PatientType        `json:"patient_type"`
	Age         *int                     `json:"age,omitempty"`
	Weight      string                   `json:"weight,omitempty"`
	Allergies   string                   `json:"allergies,omitempty"`
	Pathologies string                   `json:"pathologies,omitempty"`
	Items       []model.PrescriptionItem `json:"items"`
	CreatedAt   time.Time                `json:"created_at"`
}

// snapshot copies the item list so evaluation can run outside the lock.
func (d *Draft) snapshot() []model.PrescriptionItem {
	items := make([]model.PrescriptionItem, len(d.Items))
	copy(items, d.Items)
	return items
}
