package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind distinguishes why a notification was written
type NotificationKind string

const (
	NotificationKindAssignment NotificationKind = "assignment"
	NotificationKindDigest     NotificationKind = "digest"
	NotificationKindSystem     NotificationKind = "system"
)

// digestNamespace seeds the deterministic ids of digest notifications
var digestNamespace = uuid.MustParse("6f1c2b1e-3d5a-4c8e-9b7a-2f4d6e8a0c13")

// DigestNotificationID returns the id of the digest for userID on asOf.
// Every worker derives the same id, so a digest is stored at most once a day.
func DigestNotificationID(userID uuid.UUID, asOf Date) uuid.UUID {
	return uuid.NewSHA1(digestNamespace, []byte(userID.String()+"/"+asOf.String()))
}

// Notification is a message shown to a user in the notification tray
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	TaskID    *uuid.UUID       `json:"task_id,omitempty"`
	TaskTitle *string          `json:"task_title,omitempty"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
