package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is one audit record describing a single Kerberos lifecycle operation.
type Event struct {
	ID        string `json:"id"`           // unique for each event
	Timestamp int64  `json:"createdUtcNs"` // when the event was created, unix nanoseconds
	Action    string `json:"action"`
	Principal string `json:"principal,omitempty"`
	Realm     string `json:"realm,omitempty"`
	Success   bool   `json:"success"`
	Detail    string `json:"detail,omitempty"`
}

// stamp fills in the generated fields of an event unless the caller already
// set them.
func (e *Event) stamp() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UTC().UnixNano()
	}
}
