package repository

import (
	"context"
	"database/sql"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
)

type ChatRoomRepository struct {
	db DBTX
}

func NewChatRoomRepository(db DBTX) *ChatRoomRepository {
	return &ChatRoomRepository{db: db}
}

func (r *ChatRoomRepository) CreateOrGet(
	ctx context.Context,
	studentID int64,
	teacherID int64,
) (*models.ChatRoom, error) {
	query := `
		INSERT INTO chat_rooms (student_id, teacher_id)
		VALUES ($1, $2)
		ON CONFLICT (student_id, teacher_id)
		DO UPDATE SET updated_at = chat_rooms.updated_at
		RETURNING id, student_id, teacher_id, created_at, updated_at
	`
	var room models.ChatRoom
	err := r.db.QueryRow(ctx, query, studentID, teacherID).Scan(
		&room.ID,
		&room.StudentID,
		&room.TeacherID,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *ChatRoomRepository) GetByIDForParticipant(
	ctx context.Context,
	roomID int64,
	participantID int64,
) (*models.ChatRoom, error) {
	query := `
		SELECT id, student_id, teacher_id, created_at, updated_at
		FROM chat_rooms
		WHERE id = $1 AND (student_id = $2 OR teacher_id = $2)
	`
	var room models.ChatRoom
	err := r.db.QueryRow(ctx, query, roomID, participantID).Scan(
		&room.ID,
		&room.StudentID,
		&room.TeacherID,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *ChatRoomRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
) ([]models.ChatRoomSummary, error) {
	query := `
		SELECT
			cr.id,
			cr.student_id,
			cr.teacher_id,
			cr.created_at,
			cr.updated_at,
			lm.id,
			lm.room_id,
			lm.sender_id,
			lm.content,
			lm.is_read,
			lm.created_at,
			COALESCE(uc.unread_count, 0)
		FROM chat_rooms cr
		LEFT JOIN LATERAL (
			SELECT id, room_id, sender_id, content, is_read, created_at
			FROM messages
			WHERE room_id = cr.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages
			WHERE room_id = cr.id
			  AND sender_id <> $1
			  AND is_read = FALSE
		) uc ON TRUE
		WHERE cr.student_id = $1 OR cr.teacher_id = $1
		ORDER BY COALESCE(lm.created_at, cr.updated_at, cr.created_at) DESC, cr.id DESC
	`
	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ChatRoomSummary, 0)
	for rows.Next() {
		var summary models.ChatRoomSummary
		var messageID sql.NullInt64
		var messageRoomID sql.NullInt64
		var messageSenderID sql.NullInt64
		var messageContent sql.NullString
		var messageIsRead sql.NullBool
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.StudentID,
			&summary.TeacherID,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&messageID,
			&messageRoomID,
			&messageSenderID,
			&messageContent,
			&messageIsRead,
			&messageCreatedAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.ChatMessage{
				ID:        messageID.Int64,
				RoomID:    messageRoomID.Int64,
				SenderID:  messageSenderID.Int64,
				Content:   messageContent.String,
				IsRead:    messageIsRead.Bool,
				CreatedAt: messageCreatedAt.Time,
			}
		}

		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *ChatRoomRepository) Touch(ctx context.Context, roomID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chat_rooms
		SET updated_at = NOW()
		WHERE id = $1
	`, roomID)
	return err
}
