package store

import (
	"database/sql"
	"fmt"
)

// CreateConversation inserts a conversation with the creator and the given
// participants as members. Duplicate member ids are collapsed.
func (db *DB) CreateConversation(creatorID int64, participantIDs []int64, title string, isGroup bool) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := db.millis()
	res, err := tx.Exec(`
		INSERT INTO conversations (title, is_group_chat, creator_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		title, isGroup, creatorID, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	members := append([]int64{creatorID}, participantIDs...)
	for _, uid := range members {
		if _, err := tx.Exec(`
			INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
			VALUES (?, ?, ?)
			ON CONFLICT(conversation_id, user_id) DO NOTHING`,
			id, uid, now); err != nil {
			return 0, fmt.Errorf("insert participant %d: %w", uid, err)
		}
	}
	return id, tx.Commit()
}

// FindDirect returns the id of the non-group conversation whose only members
// are a and b, or 0 when none exists.
func (db *DB) FindDirect(a, b int64) (int64, error) {
	var id int64
	err := db.QueryRow(`
		SELECT c.conversation_id
		FROM conversations c
		WHERE c.is_group_chat = 0
		  AND EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = c.conversation_id AND user_id = ?)
		  AND EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = c.conversation_id AND user_id = ?)
		  AND (SELECT COUNT(*) FROM conversation_participants WHERE conversation_id = c.conversation_id) = 2
		ORDER BY c.conversation_id
		LIMIT 1`, a, b).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}

const conversationSelect = `
	SELECT c.conversation_id, c.title, c.is_group_chat, COALESCE(c.creator_id, 0),
		c.created_at, c.updated_at,
		COALESCE(lm.message_id, 0), COALESCE(lm.content, ''), COALESCE(lm.sent_at, 0),
		COALESCE(lm.sender_id, 0), COALESCE(lu.full_name, ''),
		p.last_read_at,
		(SELECT COUNT(*) FROM messages um
		 WHERE um.conversation_id = c.conversation_id
		   AND um.sender_id != p.user_id
		   AND um.sent_at > p.last_read_at) AS unread_count
	FROM conversation_participants p
	JOIN conversations c ON c.conversation_id = p.conversation_id
	LEFT JOIN messages lm ON lm.message_id = (
		SELECT message_id FROM messages
		WHERE conversation_id = c.conversation_id
		ORDER BY sent_at DESC, message_id DESC
		LIMIT 1)
	LEFT JOIN users lu ON lu.user_id = lm.sender_id
	WHERE p.user_id = ?`

func scanConversation(row interface{ Scan(...any) error }) (*Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.Title, &c.IsGroup, &c.CreatorID, &c.CreatedAt, &c.UpdatedAt,
		&c.LastMessageID, &c.LastPreview, &c.LastSentAt, &c.LastSenderID, &c.LastSenderName,
		&c.LastReadAt, &c.UnreadCount)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversationsForUser returns userID's conversations, most recently
// active first, with unread counts relative to userID.
func (db *DB) ListConversationsForUser(userID int64) ([]Conversation, error) {
	rows, err := db.Query(conversationSelect+`
		ORDER BY COALESCE(lm.sent_at, c.updated_at) DESC, c.conversation_id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

// GetConversationForUser returns one conversation as seen by userID, or nil
// when it does not exist or userID is not a member.
func (db *DB) GetConversationForUser(conversationID, userID int64) (*Conversation, error) {
	c, err := scanConversation(db.QueryRow(conversationSelect+` AND c.conversation_id = ?`, userID, conversationID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// AddParticipant adds userID to a conversation. Adding an existing member
// reports added=false.
func (db *DB) AddParticipant(conversationID, userID int64) (added bool, err error) {
	res, err := db.Exec(`
		INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT(conversation_id, user_id) DO NOTHING`,
		conversationID, userID, db.millis())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListParticipants returns the members of a conversation in join order.
func (db *DB) ListParticipants(conversationID int64) ([]Participant, error) {
	rows, err := db.Query(`
		SELECT p.conversation_id, p.user_id, p.joined_at, p.last_read_at, u.full_name, u.email, u.role
		FROM conversation_participants p
		JOIN users u ON u.user_id = p.user_id
		WHERE p.conversation_id = ?
		ORDER BY p.joined_at, p.user_id`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ps []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.JoinedAt, &p.LastReadAt, &p.FullName, &p.Email, &p.Role); err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, rows.Err()
}

// IsParticipant reports whether userID belongs to the conversation.
func (db *DB) IsParticipant(conversationID, userID int64) (bool, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM conversation_participants
		WHERE conversation_id = ? AND user_id = ?`, conversationID, userID).Scan(&n)
	return n > 0, err
}

// MarkRead stamps userID's last read time on the conversation with now.
func (db *DB) MarkRead(conversationID, userID int64) error {
	res, err := db.Exec(`
		UPDATE conversation_participants SET last_read_at = ?
		WHERE conversation_id = ? AND user_id = ?`,
		db.millis(), conversationID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotParticipant
	}
	return nil
}
