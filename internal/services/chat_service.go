package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/repository"
)

type ChatService struct {
	db          *pgxpool.Pool
	roomRepo    *repository.ChatRoomRepository
	messageRepo *repository.MessageRepository
	userRepo    userReader
}

// ChatDelivery carries a stored message plus the counterparty it should be
// pushed to over the hub.
type ChatDelivery struct {
	Room        *models.ChatRoom
	Message     *models.ChatMessage
	RecipientID int64
}

func NewChatService(
	db *pgxpool.Pool,
	roomRepo *repository.ChatRoomRepository,
	messageRepo *repository.MessageRepository,
	userRepo userReader,
) *ChatService {
	return &ChatService{
		db:          db,
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
	}
}

func (s *ChatService) ListRooms(
	ctx context.Context,
	actorID int64,
	role string,
) ([]models.ChatRoomSummary, error) {
	if role != "student" && role != "teacher" {
		return nil, ErrForbidden
	}

	return s.roomRepo.ListForParticipant(ctx, actorID)
}

// CreateRoom opens (or returns) the single room between the student and the
// teacher. Only students start conversations.
func (s *ChatService) CreateRoom(
	ctx context.Context,
	actorID int64,
	role string,
	teacherID int64,
) (*models.ChatRoom, error) {
	if role != "student" {
		return nil, ErrForbidden
	}
	if teacherID <= 0 || teacherID == actorID {
		return nil, ErrInvalidInput
	}

	teacher, err := s.userRepo.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeacherNotFound
		}
		return nil, err
	}
	if teacher.Role != "teacher" {
		return nil, ErrInvalidInput
	}

	return s.roomRepo.CreateOrGet(ctx, actorID, teacherID)
}

// ListMessages pages through the room newest-first and marks the fetched
// page read for the caller in the same transaction.
func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	role string,
	roomID int64,
	page int,
	limit int,
) ([]models.ChatMessage, int, error) {
	if role != "student" && role != "teacher" {
		return nil, 0, ErrForbidden
	}
	if roomID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	_, err := s.roomRepo.GetByIDForParticipant(ctx, roomID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, pgx.ErrNoRows
		}
		return nil, 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)

	messages, total, err := txMessageRepo.ListByRoom(ctx, roomID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	messageIDs := make([]int64, 0, len(messages))
	for _, message := range messages {
		messageIDs = append(messageIDs, message.ID)
	}

	if err := txMessageRepo.MarkMessagesRead(ctx, messageIDs, actorID); err != nil {
		return nil, 0, err
	}

	for i := range messages {
		if messages[i].SenderID != actorID {
			messages[i].IsRead = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	role string,
	roomID int64,
	content string,
) (*ChatDelivery, error) {
	if role != "student" && role != "teacher" {
		return nil, ErrForbidden
	}
	if roomID <= 0 {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	room, err := s.roomRepo.GetByIDForParticipant(ctx, roomID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	recipientID := room.StudentID
	if actorID == room.StudentID {
		recipientID = room.TeacherID
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txRoomRepo := repository.NewChatRoomRepository(tx)

	message, err := txMessageRepo.Create(ctx, roomID, actorID, trimmed)
	if err != nil {
		return nil, err
	}

	if err := txRoomRepo.Touch(ctx, roomID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &ChatDelivery{
		Room:        room,
		Message:     message,
		RecipientID: recipientID,
	}, nil
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
