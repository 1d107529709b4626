package store

import "time"

// AppendPending adds a deferred operation to the durable queue.
func (db *DB) AppendPending(kind, payload string) error {
	_, err := db.Exec(`
		INSERT INTO pending_ops (kind, payload, enqueued_at)
		VALUES (?, ?, ?)`,
		kind, payload, time.Now().UnixMilli())
	return err
}

// PendingOps returns queued operations in enqueue order.
func (db *DB) PendingOps() ([]PendingOp, error) {
	rows, err := db.Query(`
		SELECT seq, kind, payload, enqueued_at
		FROM pending_ops ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ops []PendingOp
	for rows.Next() {
		var op PendingOp
		if err := rows.Scan(&op.Seq, &op.Kind, &op.Payload, &op.EnqueuedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// RemovePending deletes a single queue entry after it has been applied (or
// discarded as permanently failed).
func (db *DB) RemovePending(seq int64) error {
	_, err := db.Exec(`DELETE FROM pending_ops WHERE seq = ?`, seq)
	return err
}

// PendingCount returns the number of queued operations.
func (db *DB) PendingCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM pending_ops`).Scan(&count)
	return count, err
}
