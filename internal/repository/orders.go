package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Ahmadou44/fadj-ma/internal/model"
)

// CreateOrder сохраняет заказ вместе с позициями в одной транзакции
// и возвращает идентификатор нового заказа.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o model.Order) (int64, error) {
	var orderID int64

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		err = tx.QueryRow(ctx,
			`INSERT INTO orders (patient_id, pharmacy_id, delivery_mode, delivery_address,
			                     subtotal, delivery_fee, total, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			o.PatientID, o.PharmacyID, string(o.DeliveryMode), o.DeliveryAddress,
			o.Subtotal, o.DeliveryFee, o.Total, string(o.Status),
		).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, it := range o.Items {
			_, err = tx.Exec(ctx,
				`INSERT INTO order_items (order_id, drug_id, name, price, quantity)
				 VALUES ($1, $2, $3, $4, $5)`,
				orderID, it.DrugID, it.Name, it.Price, it.Quantity,
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return orderID, nil
}

const orderColumns = `id, patient_id, pharmacy_id, delivery_mode, delivery_address,
	subtotal, delivery_fee, total, status, created_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var mode, status string
	err := row.Scan(&o.ID, &o.PatientID, &o.PharmacyID, &mode, &o.DeliveryAddress,
		&o.Subtotal, &o.DeliveryFee, &o.Total, &status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.DeliveryMode = model.DeliveryMode(mode)
	o.Status = model.OrderStatus(status)
	return &o, nil
}

// GetOrder возвращает заказ с позициями.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT drug_id, name, price, quantity FROM order_items WHERE order_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.DrugID, &it.Name, &it.Price, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return o, nil
}

// ListOrdersByPatient возвращает заказы пациента, новые первыми.
func (r *PostgresRepository) ListOrdersByPatient(ctx context.Context, patientID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE patient_id = $1 ORDER BY created_at DESC`,
		patientID,
	)
	if err != nil {
		return nil, fmt.Errorf("select patient orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListOrdersByPharmacy возвращает заказы аптеки с именем и телефоном пациента,
// новые первыми.
func (r *PostgresRepository) ListOrdersByPharmacy(ctx context.Context, pharmacyID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.patient_id, o.pharmacy_id, o.delivery_mode, o.delivery_address,
		        o.subtotal, o.delivery_fee, o.total, o.status, o.created_at,
		        u.name, u.phone
		 FROM orders o
		 JOIN users u ON u.id = o.patient_id
		 WHERE o.pharmacy_id = $1
		 ORDER BY o.created_at DESC`,
		pharmacyID,
	)
	if err != nil {
		return nil, fmt.Errorf("select pharmacy orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		var o model.Order
		var mode, status string
		err := rows.Scan(&o.ID, &o.PatientID, &o.PharmacyID, &mode, &o.DeliveryAddress,
			&o.Subtotal, &o.DeliveryFee, &o.Total, &status, &o.CreatedAt,
			&o.PatientName, &o.PatientPhone)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.DeliveryMode = model.DeliveryMode(mode)
		o.Status = model.OrderStatus(status)
		res = append(res, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateOrderStatus переводит заказ из expected в target по схеме compare-and-set:
// если статус заказа успел измениться параллельно, возвращается ErrStatusConflict.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, target, expected model.OrderStatus) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1 AND status = $3
		 RETURNING `+orderColumns,
		id, string(target), string(expected),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetOrder(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return o, nil
}

// Stats содержит показатели дашборда аптеки за текущий день.
type Stats struct {
	DailySales    int64
	TotalOrders   int64
	PendingOrders int64
	LowStock      int64
}

const lowStockThreshold = 10

// startOfDay возвращает полночь в часовом поясе переданного времени.
// Truncate здесь не годится: он режет по UTC, а сутки дашборда — локальные.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// PharmacyStats возвращает показатели дашборда аптеки: выручку по доставленным
// заказам за сегодня, число заказов за сегодня, число ожидающих заказов и
// число позиций с остатком не выше порога.
func (r *PostgresRepository) PharmacyStats(ctx context.Context, pharmacyID int64) (*Stats, error) {
	var s Stats
	today := startOfDay(time.Now())

	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total), 0)
		 FROM orders
		 WHERE pharmacy_id = $1 AND created_at >= $2 AND status = $3`,
		pharmacyID, today, string(model.OrderStatusDelivered),
	).Scan(&s.DailySales)
	if err != nil {
		return nil, fmt.Errorf("sum daily sales: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE pharmacy_id = $1 AND created_at >= $2`,
		pharmacyID, today,
	).Scan(&s.TotalOrders)
	if err != nil {
		return nil, fmt.Errorf("count daily orders: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE pharmacy_id = $1 AND status = $2`,
		pharmacyID, string(model.OrderStatusPending),
	).Scan(&s.PendingOrders)
	if err != nil {
		return nil, fmt.Errorf("count pending orders: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM stocks WHERE pharmacy_id = $1 AND quantity <= $2`,
		pharmacyID, lowStockThreshold,
	).Scan(&s.LowStock)
	if err != nil {
		return nil, fmt.Errorf("count low stock: %w", err)
	}

	return &s, nil
}
