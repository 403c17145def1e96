package model

type AppointmentPriority string

const (
	PriorityUrgent  AppointmentPriority = "urgent"
	PriorityInitial AppointmentPriority = "initial"
	PriorityRoutine AppointmentPriority = "routine"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentRejected  AppointmentStatus = "rejected"
)

type Appointment struct {
	Base
	PatientName      string              `json:"patient_name" db:"patient_name"`
	Phone            string              `json:"phone" db:"phone"`
	Date             string              `json:"date" db:"date"`
	Note             string              `json:"note" db:"note"`
	Priority         AppointmentPriority `json:"priority" db:"priority"`
	Status           AppointmentStatus   `json:"status" db:"status"`
	AIClassification string              `json:"ai_classification,omitempty" db:"ai_classification"`
	BookedByDoctor   bool                `json:"booked_by_doctor" db:"booked_by_doctor"`
}

type CreateAppointmentRequest struct {
	PatientName    string `json:"patient_name" binding:"required"`
	Phone          string `json:"phone"`
	Date           string `json:"date" binding:"required,datetime=2006-01-02"`
	Note           string `json:"note" binding:"max=1000"`
	BookedByDoctor bool   `json:"booked_by_doctor"`
}

type UpdateAppointmentRequest struct {
	Date     *string              `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Note     *string              `json:"note"`
	Priority *AppointmentPriority `json:"priority"`
	Status   *AppointmentStatus   `json:"status"`
}

// DailyCapacity caps how many appointments a date accepts.
type DailyCapacity struct {
	Date  string `json:"date" db:"date"`
	Limit int    `json:"limit" db:"capacity_limit"`
}

const DefaultDailyCapacity = 15
