package store

// UpsertMessage inserts or updates a message (idempotent on id).
func (db *DB) UpsertMessage(m *Message) error {
	_, err := db.Exec(`
		INSERT INTO messages (id, conversation_id, sender_id, body, sent_at, synced)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			sent_at = excluded.sent_at,
			synced = excluded.synced`,
		m.ID, m.ConversationID, m.SenderID, m.Body, m.SentAt, m.Synced)
	return err
}

// ReplaceMessage deletes the record keyed by oldID and upserts the confirmed
// record in one transaction, so a reconciled message never coexists with its
// provisional predecessor.
func (db *DB) ReplaceMessage(oldID string, m *Message) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE id = ?`, oldID); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO messages (id, conversation_id, sender_id, body, sent_at, synced)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			sent_at = excluded.sent_at,
			synced = excluded.synced`,
		m.ID, m.ConversationID, m.SenderID, m.Body, m.SentAt, m.Synced); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteMessage removes a message by id.
func (db *DB) DeleteMessage(id string) error {
	_, err := db.Exec(`DELETE FROM messages WHERE id = ?`, id)
	return err
}

// ListMessages returns a conversation's messages ordered by sent_at ascending.
func (db *DB) ListMessages(conversationID string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, sender_id, body, sent_at, synced
		FROM messages
		WHERE conversation_id = ?
		ORDER BY sent_at ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.SentAt, &m.Synced); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
