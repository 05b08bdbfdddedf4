package services

import (
	"context"
	"sort"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/connection"
	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/relationship"
	"sentinal-social/internal/domain/thread"
	"sentinal-social/internal/events"
	"sentinal-social/internal/provisioning"
	"sentinal-social/internal/proxy"
	sentinal_errors "sentinal-social/pkg/errors"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const previewLength = 80

type ThreadSummary struct {
	ID                 uuid.UUID
	Name               string
	IsGroup            bool
	ParticipantIDs     []uuid.UUID
	LastMessagePreview string
	LastActivityAt     time.Time
	UnreadCount        int
}

type UnreadSummary struct {
	ByThread map[uuid.UUID]int
	Total    int
}

type ConnectionSummary struct {
	OtherUserID  uuid.UUID
	Status       relationship.Status
	LastActiveAt time.Time
	ThreadID     uuid.NullUUID
}

// MessagingService is the entry point for the social and messaging core.
// It wires accept to direct-thread provisioning and is the only send path.
type MessagingService struct {
	relationships *RelationshipService
	requests      *ConnectionRequestService
	threads       *ThreadService
	messages      *MessageService
	access        *proxy.AccessControl
	provisioner   *provisioning.Processor
	notifier      *events.Notifier
	log           *logger.Logger
}

func NewMessagingService(
	relationships *RelationshipService,
	requests *ConnectionRequestService,
	threads *ThreadService,
	messages *MessageService,
	access *proxy.AccessControl,
	provisioner *provisioning.Processor,
	notifier *events.Notifier,
	log *logger.Logger,
) *MessagingService {
	if log == nil {
		log = logger.Nop()
	}
	s := &MessagingService{
		relationships: relationships,
		requests:      requests,
		threads:       threads,
		messages:      messages,
		access:        access,
		provisioner:   provisioner,
		notifier:      notifier,
		log:           log,
	}
	requests.OnAccepted(s.onRequestAccepted)
	return s
}

// onRequestAccepted provisions the direct thread for a new connection. On
// failure the pair is queued for retry and the error is reported as degraded.
func (s *MessagingService) onRequestAccepted(ctx context.Context, conn connection.Connection) (uuid.UUID, error) {
	t, err := s.threads.GetOrCreateDirect(ctx, conn.FromUserID, conn.ToUserID)
	if err == nil {
		return t.ID, nil
	}

	log := s.log.WithContext(ctx).With(
		zap.String("request_id", conn.RequestID.String()),
		zap.Error(err),
	)
	if s.provisioner == nil {
		log.Error("direct thread provisioning failed, no retry queue configured")
		return uuid.Nil, sentinal_errors.Wrap(sentinal_errors.ErrProvisioningDegraded, err)
	}
	if qErr := s.provisioner.Enqueue(ctx, domain.NewPair(conn.FromUserID, conn.ToUserID), err); qErr != nil {
		log.Error("direct thread provisioning failed and could not be queued", zap.NamedError("queue_error", qErr))
	} else {
		log.Warn("direct thread provisioning failed, queued for retry")
	}
	return uuid.Nil, sentinal_errors.Wrap(sentinal_errors.ErrProvisioningDegraded, err)
}

// RetryProvisioning runs one pass over queued provisioning work.
func (s *MessagingService) RetryProvisioning(ctx context.Context) (int, error) {
	if s.provisioner == nil {
		return 0, nil
	}
	return s.provisioner.ProcessDue(ctx)
}

func (s *MessagingService) GetThreadsForUser(ctx context.Context, userID uuid.UUID) ([]ThreadSummary, error) {
	threads, err := s.threads.GetThreadsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ThreadSummary, 0, len(threads))
	for _, t := range threads {
		summary := ThreadSummary{
			ID:             t.ID,
			Name:           t.Name,
			IsGroup:        t.IsGroup,
			ParticipantIDs: t.ParticipantIDs,
			LastActivityAt: t.LastActivityAt(),
		}
		latest, ok, err := s.messages.Latest(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			summary.LastMessagePreview = latest.Preview(previewLength)
		}
		if summary.UnreadCount, err = s.messages.UnreadCount(ctx, userID, t.ID); err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

// GetMessages returns the thread log to one of its participants.
func (s *MessagingService) GetMessages(ctx context.Context, threadID, userID uuid.UUID) ([]message.Message, error) {
	if _, err := s.access.CanViewThread(ctx, userID, threadID); err != nil {
		return nil, err
	}
	return s.messages.GetMessages(ctx, threadID)
}

func (s *MessagingService) SendMessage(ctx context.Context, threadID, senderID uuid.UUID, content string) (message.Message, error) {
	t, err := s.access.CanSendMessage(ctx, senderID, threadID)
	if err != nil {
		return message.Message{}, err
	}
	m, err := s.messages.Append(ctx, threadID, senderID, content)
	if err != nil {
		return message.Message{}, err
	}

	recipients := make([]uuid.UUID, 0, len(t.ParticipantIDs))
	for _, id := range t.ParticipantIDs {
		if id != senderID {
			recipients = append(recipients, id)
		}
	}
	s.notifier.Notify(ctx, events.NewMessageReceived(m.ID, m.ThreadID, m.SenderID, m.Sequence, m.Preview(previewLength), recipients, m.CreatedAt))
	return m, nil
}

// OpenThread returns the messages for display and marks exactly those as
// read by userID. Anything appended after the read stays unread.
func (s *MessagingService) OpenThread(ctx context.Context, threadID, userID uuid.UUID) ([]message.Message, error) {
	msgs, err := s.GetMessages(ctx, threadID, userID)
	if err != nil {
		return nil, err
	}
	var upTo int64
	for _, m := range msgs {
		if m.Sequence > upTo {
			upTo = m.Sequence
		}
	}
	if upTo == 0 {
		return msgs, nil
	}
	if _, err := s.messages.MarkRead(ctx, threadID, userID, upTo); err != nil {
		return nil, err
	}
	for i := range msgs {
		if !msgs[i].IsReadBy(userID) {
			msgs[i].ReadBy = domain.SortIDs(append(msgs[i].ReadBy, userID))
		}
	}
	return msgs, nil
}

// MarkRead marks messages up to upTo (zero for latest) as read by userID.
func (s *MessagingService) MarkRead(ctx context.Context, threadID, userID uuid.UUID, upTo int64) (int, error) {
	return s.messages.MarkRead(ctx, threadID, userID, upTo)
}

func (s *MessagingService) UnreadCount(ctx context.Context, userID, threadID uuid.UUID) (int, error) {
	return s.messages.UnreadCount(ctx, userID, threadID)
}

func (s *MessagingService) UnreadSummary(ctx context.Context, userID uuid.UUID) (UnreadSummary, error) {
	threads, err := s.threads.GetThreadsForUser(ctx, userID)
	if err != nil {
		return UnreadSummary{}, err
	}
	summary := UnreadSummary{ByThread: make(map[uuid.UUID]int, len(threads))}
	for _, t := range threads {
		n, err := s.messages.UnreadCount(ctx, userID, t.ID)
		if err != nil {
			return UnreadSummary{}, err
		}
		summary.ByThread[t.ID] = n
		summary.Total += n
	}
	return summary, nil
}

// GetRelationship reports the pair status as seen by userID; a pair with no
// record but a pending request in either direction is reported as pending.
func (s *MessagingService) GetRelationship(ctx context.Context, userID, otherID uuid.UUID) (relationship.Status, error) {
	if userID == otherID {
		return "", sentinal_errors.Validation("relationship needs two distinct users")
	}
	status, err := s.relationships.Get(ctx, userID, otherID)
	if err != nil {
		return "", err
	}
	if status != relationship.StatusNone {
		return status, nil
	}
	_, pending, err := s.requests.PendingBetween(ctx, userID, otherID)
	if err != nil {
		return "", err
	}
	if pending {
		return relationship.StatusPending, nil
	}
	return relationship.StatusNone, nil
}

func (s *MessagingService) SubmitConnectionRequest(ctx context.Context, from, to uuid.UUID, message string) (connection.Request, error) {
	return s.requests.Submit(ctx, from, to, message)
}

// AcceptConnectionRequest accepts on behalf of actorID. When the direct
// thread could not be created the connection is still returned together
// with an ErrProvisioningDegraded error.
func (s *MessagingService) AcceptConnectionRequest(ctx context.Context, requestID, actorID uuid.UUID) (connection.Connection, error) {
	return s.requests.AcceptAs(ctx, requestID, actorID)
}

func (s *MessagingService) DeclineConnectionRequest(ctx context.Context, requestID, actorID uuid.UUID) error {
	return s.requests.DeclineAs(ctx, requestID, actorID)
}

func (s *MessagingService) ListIncomingRequests(ctx context.Context, userID uuid.UUID) ([]connection.Request, error) {
	return s.requests.ListIncoming(ctx, userID)
}

func (s *MessagingService) ListOutgoingRequests(ctx context.Context, userID uuid.UUID) ([]connection.Request, error) {
	return s.requests.ListOutgoing(ctx, userID)
}

func (s *MessagingService) Block(ctx context.Context, blocker, blocked uuid.UUID) (relationship.Relationship, error) {
	return s.requests.Block(ctx, blocker, blocked)
}

func (s *MessagingService) Unblock(ctx context.Context, actor, other uuid.UUID) error {
	return s.requests.Unblock(ctx, actor, other)
}

// GetConnections lists connected and blocked pairs for userID, most recently
// active first. It only reads; a missing direct thread is reported as such.
func (s *MessagingService) GetConnections(ctx context.Context, userID uuid.UUID) ([]ConnectionSummary, error) {
	rels, err := s.relationships.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ConnectionSummary, 0, len(rels))
	for _, rel := range rels {
		if rel.Status != relationship.StatusConnected && rel.Status != relationship.StatusBlocked {
			continue
		}
		other := rel.Other(userID)
		summary := ConnectionSummary{
			OtherUserID:  other,
			Status:       rel.Status,
			LastActiveAt: rel.UpdatedAt,
		}
		t, err := s.threads.GetDirect(ctx, userID, other)
		switch {
		case err == nil:
			summary.ThreadID = uuid.NullUUID{UUID: t.ID, Valid: true}
			if at := t.LastActivityAt(); at.After(summary.LastActiveAt) {
				summary.LastActiveAt = at
			}
		case !sentinal_errors.IsNotFound(err):
			return nil, err
		}
		out = append(out, summary)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastActiveAt.Equal(out[j].LastActiveAt) {
			return out[i].LastActiveAt.After(out[j].LastActiveAt)
		}
		return out[i].OtherUserID.String() < out[j].OtherUserID.String()
	})
	return out, nil
}

// CreateGroup creates a group thread whose members are creatorID plus
// participantIDs. A group needs at least three distinct members so it can
// never be confused with a direct thread.
func (s *MessagingService) CreateGroup(ctx context.Context, creatorID uuid.UUID, name string, participantIDs []uuid.UUID) (thread.Thread, error) {
	if creatorID == uuid.Nil {
		return thread.Thread{}, sentinal_errors.Validation("creator id is required")
	}
	members := domain.SortIDs(append([]uuid.UUID{creatorID}, participantIDs...))
	if len(members) < 3 {
		return thread.Thread{}, sentinal_errors.Validation("group needs at least 3 distinct members including the creator")
	}
	return s.threads.CreateGroup(ctx, name, members)
}

func (s *MessagingService) GetThread(ctx context.Context, threadID, userID uuid.UUID) (thread.Thread, error) {
	return s.access.CanViewThread(ctx, userID, threadID)
}
