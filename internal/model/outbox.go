package model

import (
	"path"
	"time"
)

const OutboxCollection = "push_notifications_queue"

// Outbox record field names as stored.
const (
	FieldRecipientID      = "recipient_id"
	FieldDeviceToken      = "device_token"
	FieldTitle            = "title"
	FieldBody             = "body"
	FieldData             = "data"
	FieldSent             = "sent"
	FieldSentAt           = "sent_at"
	FieldError            = "error"
	FieldProviderResponse = "provider_response"
	FieldCreatedAt        = "created_at"
)

// OutboxRecord is one queued push notification. Sent is terminal: once true
// the record is never dispatched again.
type OutboxRecord struct {
	ID               string
	RecipientID      string
	DeviceToken      string
	Title            string
	Body             string
	Data             map[string]string
	Sent             bool
	SentAt           time.Time
	Error            string
	ProviderResponse string
	CreatedAt        time.Time
}

func OutboxPath(id string) string {
	return path.Join(OutboxCollection, id)
}
