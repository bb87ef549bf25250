package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Ahmadou44/fadj-ma/internal/model"
)

const paymentColumns = `id, order_id, method, phone_number, amount, confirmed, created_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	var method string
	err := row.Scan(&p.ID, &p.OrderID, &method, &p.PhoneNumber, &p.Amount, &p.Confirmed, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Method = model.PaymentMethod(method)
	return &p, nil
}

// CreatePayment создаёт неподтверждённый платёж по заказу. На один заказ
// существует не больше одного платежа: повторная инициация возвращает уже
// созданную неподтверждённую запись, а подтверждённый платёж — ErrPaymentConfirmed.
func (r *PostgresRepository) CreatePayment(ctx context.Context, p model.Payment) (*model.Payment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO payments (order_id, method, phone_number, amount)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (order_id) DO NOTHING`,
		p.OrderID, string(p.Method), p.PhoneNumber, p.Amount,
	)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	existing, err := scanPayment(tx.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`,
		p.OrderID,
	))
	if err != nil {
		return nil, fmt.Errorf("select payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if existing.Confirmed {
		return nil, ErrPaymentConfirmed
	}

	return existing, nil
}

// GetPayment возвращает платёж по идентификатору.
func (r *PostgresRepository) GetPayment(ctx context.Context, id int64) (*model.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// ConfirmPayment помечает платёж подтверждённым. Подтвердить платёж можно
// ровно один раз: повторный вызов возвращает ErrPaymentConfirmed.
func (r *PostgresRepository) ConfirmPayment(ctx context.Context, id int64) (*model.Payment, error) {
	var confirmed *model.Payment

	err := r.withRetry(ctx, func() error {
		p, err := scanPayment(r.pool.QueryRow(ctx,
			`UPDATE payments SET confirmed = TRUE WHERE id = $1 AND confirmed = FALSE
			 RETURNING `+paymentColumns,
			id,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				if _, getErr := r.GetPayment(ctx, id); getErr != nil {
					return getErr
				}
				return ErrPaymentConfirmed
			}
			return fmt.Errorf("confirm payment: %w", err)
		}
		confirmed = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return confirmed, nil
}
