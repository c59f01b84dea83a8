package domain

import (
	"fmt"
	"time"
)

// Channel is the delivery transport a notification is sent through.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

// Channels lists every supported channel in a stable order.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp}

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// Priority is a coarse ordering hint. Urgent is dequeued first.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// Priorities lists the classes in dequeue order.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityNormal}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal:
		return true
	}
	return false
}

// Rank is the position of the priority in dequeue order.
// Unknown priorities sort with normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	}
	return 2
}

// Status tracks the delivery lifecycle of a notification.
// The only transitions are pending→delivered and pending→failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// Type tags the semantic purpose of a notification and selects its templates.
type Type string

const (
	TypeMeetingReady       Type = "meetingReady"
	TypeMeetingReminder    Type = "meetingReminder"
	TypeActionItemAssigned Type = "actionItemAssigned"
	TypeActionItemDue      Type = "actionItemDue"
	TypeTranscriptReady    Type = "transcriptReady"
	TypeWeeklyDigest       Type = "weeklyDigest"
)

// KnownTypes is the closed set of types that must have a handler on every
// channel. Requests may still carry other types.
var KnownTypes = []Type{
	TypeMeetingReady,
	TypeMeetingReminder,
	TypeActionItemAssigned,
	TypeActionItemDue,
	TypeTranscriptReady,
	TypeWeeklyDigest,
}

func (t Type) IsKnown() bool {
	for _, k := range KnownTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Payload is the opaque key-value data used to render a message.
type Payload map[string]any

// String returns the value for key formatted as a string, or "" when absent.
func (p Payload) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; print whole numbers without a fraction.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
	}
	return fmt.Sprint(v)
}

// Notification is the durable record of one requested notification.
type Notification struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Type        Type       `json:"type"`
	Channel     Channel    `json:"channel"`
	Data        Payload    `json:"data"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	LastError   *string    `json:"lastError,omitempty"`
}

// Contact carries whatever addressing a channel needs for one recipient.
type Contact struct {
	UserID    string
	Email     string
	Phone     string
	PushToken string
}

// SendRequest is the inbound payload for a single notification.
type SendRequest struct {
	UserID   string   `json:"userId"`
	Type     Type     `json:"type"`
	Channel  Channel  `json:"channel"`
	Data     Payload  `json:"data"`
	Priority Priority `json:"priority,omitempty"`
}

// Validate checks the request shape. An empty priority is set to normal.
func (r *SendRequest) Validate() error {
	if r.UserID == "" {
		return ErrMissingUserID
	}
	if r.Type == "" {
		return ErrMissingType
	}
	if !r.Channel.IsValid() {
		return ErrInvalidChannel
	}
	if r.Priority == "" {
		r.Priority = PriorityNormal
	}
	if !r.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}

// MaxBulkRecipients caps a single bulk request.
const MaxBulkRecipients = 1000

// BulkRequest fans one message out to many recipients.
type BulkRequest struct {
	UserIDs  []string `json:"userIds"`
	Type     Type     `json:"type"`
	Channel  Channel  `json:"channel"`
	Data     Payload  `json:"data"`
	Priority Priority `json:"priority,omitempty"`
}

// Validate checks the shared fields and every recipient id.
func (r *BulkRequest) Validate() error {
	if len(r.UserIDs) == 0 {
		return ErrBulkEmpty
	}
	if len(r.UserIDs) > MaxBulkRecipients {
		return ErrBulkTooLarge
	}
	for _, id := range r.UserIDs {
		if id == "" {
			return ErrMissingUserID
		}
	}
	shared := SendRequest{UserID: r.UserIDs[0], Type: r.Type, Channel: r.Channel, Priority: r.Priority}
	if err := shared.Validate(); err != nil {
		return err
	}
	r.Priority = shared.Priority
	return nil
}

// Request returns the single-recipient request for userID.
func (r *BulkRequest) Request(userID string) SendRequest {
	return SendRequest{UserID: userID, Type: r.Type, Channel: r.Channel, Data: r.Data, Priority: r.Priority}
}
