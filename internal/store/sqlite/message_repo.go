package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sockchat/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

const messageColumns = `id, sender_id, sender_name, content, room, recipient_id, type, file_url, created_at, reactions, read_by`

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if m.Reactions == nil {
		m.Reactions = make(map[string][]int64)
	}
	if m.ReadBy == nil {
		m.ReadBy = []int64{}
	}
	reactions, err := json.Marshal(m.Reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}
	readBy, err := json.Marshal(m.ReadBy)
	if err != nil {
		return fmt.Errorf("marshal read set: %w", err)
	}
	m.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO messages (sender_id, sender_name, content, room, recipient_id, type, file_url, created_at, reactions, read_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		m.SenderID, m.SenderName, m.Content, m.Room, m.RecipientID, m.Type, m.FileURL, m.CreatedAt, string(reactions), string(readBy))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = ?`
	return r.scanMessage(r.db.QueryRowContext(ctx, query, id))
}

func (r *MessageRepo) ListByRoom(ctx context.Context, room string, limit, offset int) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE room = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return r.listMessages(ctx, query, room, limit, offset)
}

func (r *MessageRepo) ListPublic(ctx context.Context, limit, offset int) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE recipient_id IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return r.listMessages(ctx, query, limit, offset)
}

func (r *MessageRepo) AddReaction(ctx context.Context, messageID, userID int64, symbol string) (*domain.Message, error) {
	return r.updateSets(ctx, messageID, func(m *domain.Message) bool {
		return m.AddReaction(symbol, userID)
	})
}

func (r *MessageRepo) MarkRead(ctx context.Context, messageID, userID int64) (*domain.Message, error) {
	return r.updateSets(ctx, messageID, func(m *domain.Message) bool {
		return m.MarkReadBy(userID)
	})
}

// updateSets applies a read-modify-write on the message's JSON set columns
// inside a transaction. The mutation reports whether anything changed; an
// unchanged message skips the write, which keeps repeats idempotent.
func (r *MessageRepo) updateSets(ctx context.Context, messageID int64, mutate func(*domain.Message) bool) (*domain.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = ?`
	m, err := r.scanMessage(tx.QueryRowContext(ctx, query, messageID))
	if err != nil {
		return nil, err
	}

	if !mutate(m) {
		return m, nil
	}

	reactions, err := json.Marshal(m.Reactions)
	if err != nil {
		return nil, fmt.Errorf("marshal reactions: %w", err)
	}
	readBy, err := json.Marshal(m.ReadBy)
	if err != nil {
		return nil, fmt.Errorf("marshal read set: %w", err)
	}
	update := `UPDATE messages SET reactions = ?, read_by = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, update, string(reactions), string(readBy), messageID); err != nil {
		return nil, fmt.Errorf("update message sets: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) listMessages(ctx context.Context, query string, args ...any) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		m, err := r.scanMessageRow(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *MessageRepo) scanMessage(row *sql.Row) (*domain.Message, error) {
	m, err := r.scanMessageRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return m, err
}

func (r *MessageRepo) scanMessageRow(row rowScanner) (*domain.Message, error) {
	m := &domain.Message{}
	var reactions, readBy string
	err := row.Scan(
		&m.ID,
		&m.SenderID,
		&m.SenderName,
		&m.Content,
		&m.Room,
		&m.RecipientID,
		&m.Type,
		&m.FileURL,
		&m.CreatedAt,
		&reactions,
		&readBy,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reactions), &m.Reactions); err != nil {
		return nil, fmt.Errorf("unmarshal reactions: %w", err)
	}
	if err := json.Unmarshal([]byte(readBy), &m.ReadBy); err != nil {
		return nil, fmt.Errorf("unmarshal read set: %w", err)
	}
	return m, nil
}
