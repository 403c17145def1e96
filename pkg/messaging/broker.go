package messaging

import (
	"context"
)

// Broker is the change-notification backbone: every mutation of a clinic
// resource is published on a per-resource channel so that other open
// views can refresh without polling.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// ChangeEvent is the payload published on resource channels.
type ChangeEvent struct {
	Resource  string      `json:"resource"`
	Operation string      `json:"operation"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Resource channels
const (
	ChannelMedicines     = "meddoc:medicines"
	ChannelPatients      = "meddoc:patients"
	ChannelQueue         = "meddoc:queue"
	ChannelPrescriptions = "meddoc:prescriptions"
	ChannelAppointments  = "meddoc:appointments"
	ChannelTasks         = "meddoc:tasks"
	ChannelReports       = "meddoc:reports"
)
