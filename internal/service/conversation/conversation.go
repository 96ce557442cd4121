// Package conversation holds the client↔pro chat thread an appointment hangs
// off of. Appointment transitions drop system messages into the thread so the
// negotiation and its outcome read as one history.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"github.com/artlinkhq/artlink_backend/internal/model"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type SendMessageRequest struct {
	SenderID uuid.UUID
	Content  string
}

type ListMessagesRequest struct {
	Page    int
	PerPage int
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// GetOrCreate returns the thread between two users, creating it on first
	// contact. The pair is unordered.
	GetOrCreate(ctx context.Context, userA, userB uuid.UUID) (*model.Conversation, error)
	List(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*model.Conversation, error)
	GetByID(ctx context.Context, convID, userID uuid.UUID) (*model.Conversation, error)
	ListMessages(ctx context.Context, convID, userID uuid.UUID, req ListMessagesRequest) ([]*model.Message, error)
	SendMessage(ctx context.Context, convID uuid.UUID, req SendMessageRequest) (*model.Message, error)
	// PostSystemMessage appends a sender-less message, used for appointment
	// lifecycle announcements.
	PostSystemMessage(ctx context.Context, convID uuid.UUID, content string) (*model.Message, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type conversationService struct {
	db *gorm.DB
	nc *nats.Conn
}

func New(db *gorm.DB, nc *nats.Conn) Service {
	return &conversationService{db: db, nc: nc}
}

func (s *conversationService) GetOrCreate(ctx context.Context, userA, userB uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("(participant_a = ? AND participant_b = ?) OR (participant_a = ? AND participant_b = ?)",
			userA, userB, userB, userA).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	conv = model.Conversation{ParticipantA: userA, ParticipantB: userB}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &conv, nil
}

func (s *conversationService) List(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*model.Conversation, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	var convs []*model.Conversation
	err := s.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("last_message_at DESC NULLS LAST").
		Offset(offset).
		Limit(perPage).
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

func (s *conversationService) GetByID(ctx context.Context, convID, userID uuid.UUID) (*model.Conversation, error) {
	conv, err := s.participantConversation(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *conversationService) ListMessages(ctx context.Context, convID, userID uuid.UUID, req ListMessagesRequest) ([]*model.Message, error) {
	if _, err := s.participantConversation(ctx, convID, userID); err != nil {
		return nil, err
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 100 {
		req.PerPage = 50
	}
	offset := (req.Page - 1) * req.PerPage

	var msgs []*model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at DESC").
		Offset(offset).
		Limit(req.PerPage).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (s *conversationService) SendMessage(ctx context.Context, convID uuid.UUID, req SendMessageRequest) (*model.Message, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := s.participantConversation(ctx, convID, req.SenderID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: convID,
		SenderID:       &req.SenderID,
		Kind:           model.MessageKindUser,
		Content:        req.Content,
	}
	return s.saveAndPublish(ctx, msg)
}

func (s *conversationService) PostSystemMessage(ctx context.Context, convID uuid.UUID, content string) (*model.Message, error) {
	msg := &model.Message{
		ConversationID: convID,
		Kind:           model.MessageKindSystem,
		Content:        content,
	}
	return s.saveAndPublish(ctx, msg)
}

func (s *conversationService) saveAndPublish(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	_ = s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", msg.ConversationID).
		Update("last_message_at", msg.CreatedAt).Error

	if s.nc != nil {
		subject := fmt.Sprintf("artlink.message.new.%s", msg.ConversationID.String())
		_ = s.nc.Publish(subject, []byte(msg.ID.String()))
	}
	return msg, nil
}

func (s *conversationService) participantConversation(ctx context.Context, convID, userID uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).First(&conv, "id = ?", convID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv.ParticipantA != userID && conv.ParticipantB != userID {
		return nil, ErrUnauthorized
	}
	return &conv, nil
}
