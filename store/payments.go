package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BatmanBruc/vip-access-bot/types"
)

const paymentColumns = `id, user_id, plan_id, amount, method, status, transaction_ref, proof_file_id, note,
  verified_by, verified_at, created_at`

func scanPayment(row rowScanner) (*types.PaymentRequest, error) {
	var (
		p                 types.PaymentRequest
		method, status    string
		ref, fileID, note sql.NullString
		verifiedBy        sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.Amount, &method, &status, &ref, &fileID, &note,
		&verifiedBy, &p.VerifiedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Method = types.PaymentMethod(method)
	p.Status = types.PaymentStatus(status)
	p.TransactionRef = ref.String
	p.ProofFileID = fileID.String
	p.Note = note.String
	if verifiedBy.Valid {
		id := verifiedBy.Int64
		p.VerifiedBy = &id
	}
	return &p, nil
}

func (q *pgQueries) InsertPayment(ctx context.Context, p *types.PaymentRequest) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Status == "" {
		p.Status = types.PaymentPending
	}
	err := q.q.QueryRowContext(ctx, `
INSERT INTO payments (user_id, plan_id, amount, method, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`, p.UserID, p.PlanID, p.Amount, string(p.Method), string(p.Status), p.CreatedAt.UTC()).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert payment for %d: %w", p.UserID, err)
	}
	return nil
}

// GetPayment locks the row when called inside a transaction.
func (q *pgQueries) GetPayment(ctx context.Context, id int64) (*types.PaymentRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	if _, inTx := q.q.(*sql.Tx); inTx {
		query += ` FOR UPDATE`
	}
	p, err := scanPayment(q.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment %d: %w", id, err)
	}
	return p, nil
}

// TransitionPayment moves a pending request to a terminal status. It reports
// false when the row was not pending anymore.
func (q *pgQueries) TransitionPayment(ctx context.Context, id int64, to types.PaymentStatus, adminID int64, note string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := q.q.ExecContext(ctx, `
UPDATE payments SET
  status = $2,
  verified_by = $3,
  verified_at = $4,
  note = COALESCE($5, note)
WHERE id = $1 AND status = 'pending'
`, id, string(to), adminID, at.UTC(), nullString(note))
	if err != nil {
		return false, fmt.Errorf("transition payment %d to %s: %w", id, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (q *pgQueries) AttachProof(ctx context.Context, id, userID int64, proof types.Proof) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := q.q.ExecContext(ctx, `
UPDATE payments SET
  transaction_ref = COALESCE($3, transaction_ref),
  proof_file_id = COALESCE($4, proof_file_id),
  note = COALESCE($5, note)
WHERE id = $1 AND user_id = $2 AND status = 'pending'
`, id, userID, nullString(proof.TransactionRef), nullString(proof.FileID), nullString(proof.Note))
	if err != nil {
		if isUniqueViolation(err) {
			return false, types.ErrDuplicateReference
		}
		return false, fmt.Errorf("attach proof to payment %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresStore) ListPendingPayments(ctx context.Context, limit int) ([]types.PaymentRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.q.QueryContext(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE status = 'pending'
ORDER BY created_at ASC, id ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	defer rows.Close()

	var out []types.PaymentRequest
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
