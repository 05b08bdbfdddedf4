package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Notification events, domain.action.
const (
	EventRequestReceived EventType = "connection.request_received"
	EventRequestAccepted EventType = "connection.request_accepted"
	EventMessageReceived EventType = "message.received"
)

// Redis channel prefixes
const (
	ChannelPrefixUser = "channel:user:"
)

type Event interface {
	Type() EventType
	Timestamp() time.Time
	Recipients() []uuid.UUID
}

type BaseEvent struct {
	EventTypeVal  EventType   `json:"event_type"`
	TimestampVal  time.Time   `json:"timestamp"`
	RecipientsVal []uuid.UUID `json:"recipients"`
}

func (e BaseEvent) Type() EventType         { return e.EventTypeVal }
func (e BaseEvent) Timestamp() time.Time    { return e.TimestampVal }
func (e BaseEvent) Recipients() []uuid.UUID { return e.RecipientsVal }

type RequestReceivedEvent struct {
	BaseEvent
	RequestID  uuid.UUID `json:"request_id"`
	FromUserID uuid.UUID `json:"from_user_id"`
	ToUserID   uuid.UUID `json:"to_user_id"`
	Message    string    `json:"message,omitempty"`
}

func NewRequestReceived(requestID, from, to uuid.UUID, message string, at time.Time) *RequestReceivedEvent {
	return &RequestReceivedEvent{
		BaseEvent: BaseEvent{
			EventTypeVal:  EventRequestReceived,
			TimestampVal:  at,
			RecipientsVal: []uuid.UUID{to},
		},
		RequestID:  requestID,
		FromUserID: from,
		ToUserID:   to,
		Message:    message,
	}
}

// RequestAcceptedEvent goes to the original sender. ThreadID is nil while
// the direct thread is waiting on provisioning retry.
type RequestAcceptedEvent struct {
	BaseEvent
	RequestID  uuid.UUID  `json:"request_id"`
	FromUserID uuid.UUID  `json:"from_user_id"`
	ToUserID   uuid.UUID  `json:"to_user_id"`
	ThreadID   *uuid.UUID `json:"thread_id,omitempty"`
}

func NewRequestAccepted(requestID, from, to uuid.UUID, threadID uuid.NullUUID, at time.Time) *RequestAcceptedEvent {
	e := &RequestAcceptedEvent{
		BaseEvent: BaseEvent{
			EventTypeVal:  EventRequestAccepted,
			TimestampVal:  at,
			RecipientsVal: []uuid.UUID{from},
		},
		RequestID:  requestID,
		FromUserID: from,
		ToUserID:   to,
	}
	if threadID.Valid {
		id := threadID.UUID
		e.ThreadID = &id
	}
	return e
}

type MessageReceivedEvent struct {
	BaseEvent
	MessageID uuid.UUID `json:"message_id"`
	ThreadID  uuid.UUID `json:"thread_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Sequence  int64     `json:"sequence"`
	Preview   string    `json:"preview"`
}

func NewMessageReceived(messageID, threadID, senderID uuid.UUID, sequence int64, preview string, recipients []uuid.UUID, at time.Time) *MessageReceivedEvent {
	return &MessageReceivedEvent{
		BaseEvent: BaseEvent{
			EventTypeVal:  EventMessageReceived,
			TimestampVal:  at,
			RecipientsVal: recipients,
		},
		MessageID: messageID,
		ThreadID:  threadID,
		SenderID:  senderID,
		Sequence:  sequence,
		Preview:   preview,
	}
}
