package notify

import (
	"time"

	"github.com/google/uuid"
)

// Priority determines which delivery channels a notification uses.
type Priority string

const (
	PriorityNormal    Priority = "NORMAL"
	PriorityImportant Priority = "IMPORTANT"
	PriorityUrgent    Priority = "URGENT"
)

// Type categorizes notifications for filtering and display.
type Type string

const (
	TypeGeneral           Type = "GENERAL"
	TypeBorrowConfirmed   Type = "BORROW_CONFIRMATION"
	TypeReturnConfirmed   Type = "RETURN_CONFIRMATION"
	TypeOverdueReminder   Type = "OVERDUE_REMINDER"
	TypeDueSoonReminder   Type = "DUE_SOON_REMINDER"
	TypeExtensionApproved Type = "EXTENSION_APPROVED"
	TypeFeeNotice         Type = "FEE_NOTICE"
)

// Channel is a delivery mechanism for a notification.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Channels returns the delivery channels for a priority level:
// NORMAL is in-app only, IMPORTANT adds email, URGENT adds email and SMS.
// Unknown priorities route like NORMAL.
func (p Priority) Channels() []Channel {
	switch p {
	case PriorityImportant:
		return []Channel{ChannelInApp, ChannelEmail}
	case PriorityUrgent:
		return []Channel{ChannelInApp, ChannelEmail, ChannelSMS}
	default:
		return []Channel{ChannelInApp}
	}
}

// Notification is an in-app message, optionally mirrored to email and SMS.
type Notification struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	Title             string     `json:"title"`
	Message           string     `json:"message"`
	Type              Type       `json:"type"`
	Priority          Priority   `json:"priority"`
	IsRead            bool       `json:"is_read"`
	EmailSentAt       *time.Time `json:"email_sent_at,omitempty"`
	SMSSentAt         *time.Time `json:"sms_sent_at,omitempty"`
	RelatedEntityType string     `json:"related_entity_type,omitempty"`
	RelatedEntityID   string     `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Recipient carries the contact details channel dispatch needs. It is a
// plain value so the router stays decoupled from the users package.
type Recipient struct {
	UserID uuid.UUID
	Email  string
	Phone  string
}
