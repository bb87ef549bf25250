package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Ahmadou44/fadj-ma/internal/model"
)

// ListSubscriptionPlans возвращает справочник тарифов.
func (r *PostgresRepository) ListSubscriptionPlans(ctx context.Context) ([]model.PlanInfo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, description, price, duration FROM subscription_plans ORDER BY price`,
	)
	if err != nil {
		return nil, fmt.Errorf("select plans: %w", err)
	}
	defer rows.Close()

	var res []model.PlanInfo
	for rows.Next() {
		var p model.PlanInfo
		var typ string
		if err := rows.Scan(&p.ID, &typ, &p.Description, &p.Price, &p.Duration); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		p.Type = model.SubscriptionPlan(typ)
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetPlan возвращает тариф по идентификатору.
func (r *PostgresRepository) GetPlan(ctx context.Context, id int64) (*model.PlanInfo, error) {
	var p model.PlanInfo
	var typ string
	err := r.pool.QueryRow(ctx,
		`SELECT id, type, description, price, duration FROM subscription_plans WHERE id = $1`,
		id,
	).Scan(&p.ID, &typ, &p.Description, &p.Price, &p.Duration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	p.Type = model.SubscriptionPlan(typ)
	return &p, nil
}

const subscriptionColumns = `id, pharmacy_id, plan, renewal_price, expires_at, next_renewal_date`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	var plan string
	err := row.Scan(&s.ID, &s.PharmacyID, &plan, &s.RenewalPrice, &s.ExpiresAt, &s.NextRenewalDate)
	if err != nil {
		return nil, err
	}
	s.Plan = model.SubscriptionPlan(plan)
	return &s, nil
}

// GetActiveSubscription возвращает текущую подписку аптеки.
func (r *PostgresRepository) GetActiveSubscription(ctx context.Context, pharmacyID int64) (*model.Subscription, error) {
	s, err := scanSubscription(r.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE pharmacy_id = $1`,
		pharmacyID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return s, nil
}

// UpsertSubscription записывает подписку аптеки, замещая предыдущую:
// активной остаётся ровно одна подписка на аптеку.
func (r *PostgresRepository) UpsertSubscription(ctx context.Context, s model.Subscription) (*model.Subscription, error) {
	res, err := scanSubscription(r.pool.QueryRow(ctx,
		`INSERT INTO subscriptions (pharmacy_id, plan, renewal_price, expires_at, next_renewal_date)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (pharmacy_id) DO UPDATE
		     SET plan = EXCLUDED.plan,
		         renewal_price = EXCLUDED.renewal_price,
		         expires_at = EXCLUDED.expires_at,
		         next_renewal_date = EXCLUDED.next_renewal_date
		 RETURNING `+subscriptionColumns,
		s.PharmacyID, string(s.Plan), s.RenewalPrice, s.ExpiresAt, s.NextRenewalDate,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}
	return res, nil
}
