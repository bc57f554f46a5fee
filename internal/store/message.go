package store

import "fmt"

// InsertMessage stores a message and bumps the conversation's updated_at.
func (db *DB) InsertMessage(conversationID, senderID int64, content, messageType string) (*Message, error) {
	if messageType == "" {
		messageType = "text"
	}
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := db.millis()
	res, err := tx.Exec(`
		INSERT INTO messages (conversation_id, sender_id, content, message_type, sent_at)
		VALUES (?, ?, ?, ?, ?)`,
		conversationID, senderID, content, messageType, now)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`UPDATE conversations SET updated_at = ? WHERE conversation_id = ?`, now, conversationID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	m := Message{ID: id, ConversationID: conversationID, SenderID: senderID, Content: content, MessageType: messageType, SentAt: now}
	if err := tx.QueryRow(`SELECT full_name FROM users WHERE user_id = ?`, senderID).Scan(&m.SenderName); err != nil {
		return nil, fmt.Errorf("load sender: %w", err)
	}
	return &m, tx.Commit()
}

// ListMessages returns one page of a conversation counted back from the
// newest message: offset 0 is the latest page. The page itself is ordered
// oldest first.
func (db *DB) ListMessages(conversationID int64, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := db.Query(`
		SELECT m.message_id, m.conversation_id, m.sender_id, COALESCE(u.full_name, ''),
			m.content, m.message_type, m.sent_at
		FROM messages m
		LEFT JOIN users u ON u.user_id = m.sender_id
		WHERE m.conversation_id = ?
		ORDER BY m.sent_at DESC, m.message_id DESC
		LIMIT ? OFFSET ?`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Content, &m.MessageType, &m.SentAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
