package notify

// Event is one broadcast envelope pushed to every connected client.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Server-to-client event types.
const (
	TypeNotification     = "notification"
	TypeOndutyStatus     = "ondutyStatus"
	TypeAttendanceUpdate = "attendanceUpdate"
)

// Message builds a generic notification event.
func Message(text string) Event {
	return Event{Type: TypeNotification, Data: map[string]string{"message": text}}
}

// OndutyStatus builds a status-change event for an onduty request. Delivery is
// still a broadcast; clients filter by roll number.
func OndutyStatus(id, rollNumber, status, reason string, dates []string) Event {
	return Event{Type: TypeOndutyStatus, Data: map[string]interface{}{
		"id":         id,
		"rollNumber": rollNumber,
		"status":     status,
		"reason":     reason,
		"dates":      dates,
	}}
}

// AttendanceUpdate builds an event announcing a newly recorded presence.
func AttendanceUpdate(rollNumber, name string) Event {
	return Event{Type: TypeAttendanceUpdate, Data: map[string]string{
		"rollNumber": rollNumber,
		"name":       name,
	}}
}
