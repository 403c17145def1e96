package model

import "time"

type DailyReport struct {
	Date               string    `json:"date" db:"date"`
	TotalRevenue       float64   `json:"total_revenue" db:"total_revenue"`
	PrescriptionsCount int       `json:"prescriptions_count" db:"prescriptions_count"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// DatabaseStats summarizes the clinic dataset for the dashboard.
type DatabaseStats struct {
	PatientCount      int        `json:"patient_count"`
	PrescriptionCount int        `json:"prescription_count"`
	MedicineCount     int        `json:"medicine_count"`
	AppointmentCount  int        `json:"appointment_count"`
	LastBackup        *time.Time `json:"last_backup,omitempty"`
}

// Backup aggregates every collection into a single restorable document.
type Backup struct {
	ExportedAt    time.Time      `json:"exported_at"`
	Medicines     []*Medicine    `json:"medicines"`
	Patients      []*Patient     `json:"patients"`
	Prescriptions []*Prescription `json:"prescriptions"`
	Appointments  []*Appointment `json:"appointments"`
	Tasks         []*Task        `json:"tasks"`
	Reports       []*DailyReport `json:"reports"`
}
