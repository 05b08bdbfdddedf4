package httpdto

import (
	"time"

	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/thread"
	"sentinal-social/internal/services"

	"github.com/google/uuid"
)

type CreateGroupRequest struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type MarkReadRequest struct {
	UpTo int64 `json:"up_to"`
}

type ThreadDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	IsGroup        bool     `json:"is_group"`
	ParticipantIDs []string `json:"participant_ids"`
	CreatedAt      string   `json:"created_at"`
	LastActivityAt string   `json:"last_activity_at"`
}

type ThreadSummaryDTO struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name,omitempty"`
	IsGroup            bool     `json:"is_group"`
	ParticipantIDs     []string `json:"participant_ids"`
	LastMessagePreview string   `json:"last_message_preview"`
	LastActivityAt     string   `json:"last_activity_at"`
	UnreadCount        int      `json:"unread_count"`
}

type MessageDTO struct {
	ID        string   `json:"id"`
	ThreadID  string   `json:"thread_id"`
	SenderID  string   `json:"sender_id"`
	Content   string   `json:"content"`
	Sequence  int64    `json:"sequence"`
	CreatedAt string   `json:"created_at"`
	ReadBy    []string `json:"read_by"`
}

type ListMessagesResponse struct {
	Messages []MessageDTO `json:"messages"`
}

type MarkReadResponse struct {
	Marked int `json:"marked"`
}

type UnreadSummaryResponse struct {
	Threads map[string]int `json:"threads"`
	Total   int            `json:"total"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// ParseIDs parses a list of user ids, failing on the first malformed entry.
func ParseIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func FromThread(t thread.Thread) ThreadDTO {
	return ThreadDTO{
		ID:             t.ID.String(),
		Name:           t.Name,
		IsGroup:        t.IsGroup,
		ParticipantIDs: idStrings(t.ParticipantIDs),
		CreatedAt:      formatTime(t.CreatedAt),
		LastActivityAt: formatTime(t.LastActivityAt()),
	}
}

func FromThreadSummary(s services.ThreadSummary) ThreadSummaryDTO {
	return ThreadSummaryDTO{
		ID:                 s.ID.String(),
		Name:               s.Name,
		IsGroup:            s.IsGroup,
		ParticipantIDs:     idStrings(s.ParticipantIDs),
		LastMessagePreview: s.LastMessagePreview,
		LastActivityAt:     formatTime(s.LastActivityAt),
		UnreadCount:        s.UnreadCount,
	}
}

func FromThreadSummarySlice(items []services.ThreadSummary) []ThreadSummaryDTO {
	dtos := make([]ThreadSummaryDTO, len(items))
	for i, s := range items {
		dtos[i] = FromThreadSummary(s)
	}
	return dtos
}

func FromMessage(m message.Message) MessageDTO {
	return MessageDTO{
		ID:        m.ID.String(),
		ThreadID:  m.ThreadID.String(),
		SenderID:  m.SenderID.String(),
		Content:   m.Content,
		Sequence:  m.Sequence,
		CreatedAt: formatTime(m.CreatedAt),
		ReadBy:    idStrings(m.ReadBy),
	}
}

func FromMessageSlice(msgs []message.Message) []MessageDTO {
	dtos := make([]MessageDTO, len(msgs))
	for i, m := range msgs {
		dtos[i] = FromMessage(m)
	}
	return dtos
}

func FromUnreadSummary(s services.UnreadSummary) UnreadSummaryResponse {
	threads := make(map[string]int, len(s.ByThread))
	for id, n := range s.ByThread {
		threads[id.String()] = n
	}
	return UnreadSummaryResponse{Threads: threads, Total: s.Total}
}
