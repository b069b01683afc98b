package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeEntryCreated       Type = "entry.created"
	TypeEntryUpdated       Type = "entry.updated"
	TypeEntryRestored      Type = "entry.uploads_restored"
	TypeNoteAdded          Type = "entry.note_added"
	TypeUploadStored       Type = "upload.stored"
	TypeNotificationQueued Type = "notification.queued"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	FormID    int64  `json:"form_id,omitempty"`
	EntryID   int64  `json:"entry_id,omitempty"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"`
}

// New stamps an event with a fresh id and the current UTC time.
func New(typ Type, formID, entryID int64, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		FormID:    formID,
		EntryID:   entryID,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ActorID:   actorID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
