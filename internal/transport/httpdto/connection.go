package httpdto

import (
	"sentinal-social/internal/domain/connection"
	"sentinal-social/internal/domain/relationship"
	"sentinal-social/internal/services"
)

type SubmitRequestRequest struct {
	ToUserID string `json:"to_user_id"`
	Message  string `json:"message"`
}

type ConnectionRequestDTO struct {
	ID         string `json:"id"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Message    string `json:"message,omitempty"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	ResolvedAt string `json:"resolved_at,omitempty"`
}

type ListRequestsResponse struct {
	Requests []ConnectionRequestDTO `json:"requests"`
}

type ConnectionDTO struct {
	RequestID   string `json:"request_id"`
	FromUserID  string `json:"from_user_id"`
	ToUserID    string `json:"to_user_id"`
	ConnectedAt string `json:"connected_at"`
	ThreadID    string `json:"thread_id,omitempty"`
}

type ConnectionSummaryDTO struct {
	OtherUserID  string `json:"other_user_id"`
	Status       string `json:"status"`
	LastActiveAt string `json:"last_active_at"`
	ThreadID     string `json:"thread_id,omitempty"`
}

type ListConnectionsResponse struct {
	Connections []ConnectionSummaryDTO `json:"connections"`
}

type RelationshipResponse struct {
	UserID  string `json:"user_id"`
	OtherID string `json:"other_id"`
	Status  string `json:"status"`
}

type RelationshipDTO struct {
	UserLow   string `json:"user_low"`
	UserHigh  string `json:"user_high"`
	Status    string `json:"status"`
	BlockedBy string `json:"blocked_by,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

func FromRequest(r connection.Request) ConnectionRequestDTO {
	dto := ConnectionRequestDTO{
		ID:         r.ID.String(),
		FromUserID: r.FromUserID.String(),
		ToUserID:   r.ToUserID.String(),
		Message:    r.Message,
		Status:     string(r.Status),
		CreatedAt:  formatTime(r.CreatedAt),
	}
	if r.ResolvedAt.Valid {
		dto.ResolvedAt = formatTime(r.ResolvedAt.Time)
	}
	return dto
}

func FromRequestSlice(items []connection.Request) []ConnectionRequestDTO {
	dtos := make([]ConnectionRequestDTO, len(items))
	for i, r := range items {
		dtos[i] = FromRequest(r)
	}
	return dtos
}

func FromConnection(c connection.Connection) ConnectionDTO {
	dto := ConnectionDTO{
		RequestID:   c.RequestID.String(),
		FromUserID:  c.FromUserID.String(),
		ToUserID:    c.ToUserID.String(),
		ConnectedAt: formatTime(c.ConnectedAt),
	}
	if c.ThreadID.Valid {
		dto.ThreadID = c.ThreadID.UUID.String()
	}
	return dto
}

func FromConnectionSummary(s services.ConnectionSummary) ConnectionSummaryDTO {
	dto := ConnectionSummaryDTO{
		OtherUserID:  s.OtherUserID.String(),
		Status:       string(s.Status),
		LastActiveAt: formatTime(s.LastActiveAt),
	}
	if s.ThreadID.Valid {
		dto.ThreadID = s.ThreadID.UUID.String()
	}
	return dto
}

func FromConnectionSummarySlice(items []services.ConnectionSummary) []ConnectionSummaryDTO {
	dtos := make([]ConnectionSummaryDTO, len(items))
	for i, s := range items {
		dtos[i] = FromConnectionSummary(s)
	}
	return dtos
}

func FromRelationship(r relationship.Relationship) RelationshipDTO {
	dto := RelationshipDTO{
		UserLow:   r.Pair.Low.String(),
		UserHigh:  r.Pair.High.String(),
		Status:    string(r.Status),
		UpdatedAt: formatTime(r.UpdatedAt),
	}
	if r.BlockedBy.Valid {
		dto.BlockedBy = r.BlockedBy.UUID.String()
	}
	return dto
}
