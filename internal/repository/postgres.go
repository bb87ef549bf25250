// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Ahmadou44/fadj-ma/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке зарегистрировать уже занятый номер телефона.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrPharmacyNotFound возвращается, если аптека не найдена.
	ErrPharmacyNotFound = errors.New("pharmacy not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrPaymentNotFound возвращается, если платёж не найден.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentConfirmed возвращается при повторном подтверждении платежа.
	ErrPaymentConfirmed = errors.New("payment already confirmed")
	// ErrStatusConflict возвращается, если статус заказа изменился параллельно.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrSubscriptionNotFound возвращается, если у аптеки нет активной подписки.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrPlanNotFound возвращается, если тариф не найден в справочнике.
	ErrPlanNotFound = errors.New("subscription plan not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраим только сериализационные сбои и дедлоки; переподключениями
		// занимается сам pgxpool.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя. Если роль — PHARMACY и переданы
// данные аптеки, аптека создаётся в той же транзакции со статусом PENDING.
func (r *PostgresRepository) CreateUser(ctx context.Context, u model.User, ph *model.Pharmacy) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO users (phone, name, role, password_hash) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Phone, u.Name, string(u.Role), u.PasswordHash,
	).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, u.Phone)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	if ph != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO pharmacies (user_id, name, address, latitude, longitude, verification_status)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			userID, ph.Name, ph.Address, ph.Latitude, ph.Longitude, string(model.VerificationPending),
		)
		if err != nil {
			return 0, fmt.Errorf("create pharmacy: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return userID, nil
}

// GetUserByPhone возвращает пользователя по номеру телефона.
func (r *PostgresRepository) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, phone, name, role, password_hash, created_at FROM users WHERE phone = $1`,
		phone,
	)

	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Phone, &u.Name, &role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)

	return &u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, phone, name, role, password_hash, created_at FROM users WHERE id = $1`,
		id,
	)

	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Phone, &u.Name, &role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	u.Role = model.Role(role)

	return &u, nil
}

const pharmacyColumns = `id, user_id, name, address, latitude, longitude, verification_status, is_verified, created_at`

func scanPharmacy(row pgx.Row) (*model.Pharmacy, error) {
	var p model.Pharmacy
	var status string
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Address, &p.Latitude, &p.Longitude,
		&status, &p.IsVerified, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.VerificationStatus = model.VerificationStatus(status)
	return &p, nil
}

// ListPharmacies возвращает все аптеки.
func (r *PostgresRepository) ListPharmacies(ctx context.Context) ([]model.Pharmacy, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pharmacyColumns+` FROM pharmacies ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("select pharmacies: %w", err)
	}
	defer rows.Close()

	var res []model.Pharmacy
	for rows.Next() {
		p, err := scanPharmacy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pharmacy: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetPharmacyByID возвращает аптеку по идентификатору.
func (r *PostgresRepository) GetPharmacyByID(ctx context.Context, id int64) (*model.Pharmacy, error) {
	p, err := scanPharmacy(r.pool.QueryRow(ctx,
		`SELECT `+pharmacyColumns+` FROM pharmacies WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPharmacyNotFound
		}
		return nil, fmt.Errorf("get pharmacy: %w", err)
	}
	return p, nil
}

// GetPharmacyByUser возвращает аптеку, принадлежащую пользователю.
func (r *PostgresRepository) GetPharmacyByUser(ctx context.Context, userID int64) (*model.Pharmacy, error) {
	p, err := scanPharmacy(r.pool.QueryRow(ctx,
		`SELECT `+pharmacyColumns+` FROM pharmacies WHERE user_id = $1`, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPharmacyNotFound
		}
		return nil, fmt.Errorf("get pharmacy by user: %w", err)
	}
	return p, nil
}

// ListPendingPharmacies возвращает аптеки, ожидающие проверки, с данными владельца.
func (r *PostgresRepository) ListPendingPharmacies(ctx context.Context) ([]model.Pharmacy, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.user_id, p.name, p.address, p.latitude, p.longitude,
		        p.verification_status, p.is_verified, p.created_at, u.name, u.phone
		 FROM pharmacies p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.verification_status = $1
		 ORDER BY p.created_at`,
		string(model.VerificationPending),
	)
	if err != nil {
		return nil, fmt.Errorf("select pending pharmacies: %w", err)
	}
	defer rows.Close()

	var res []model.Pharmacy
	for rows.Next() {
		var p model.Pharmacy
		var status string
		err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Address, &p.Latitude, &p.Longitude,
			&status, &p.IsVerified, &p.CreatedAt, &p.OwnerName, &p.OwnerPhone)
		if err != nil {
			return nil, fmt.Errorf("scan pending pharmacy: %w", err)
		}
		p.VerificationStatus = model.VerificationStatus(status)
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SetVerification обновляет статус проверки аптеки и производный флаг is_verified.
func (r *PostgresRepository) SetVerification(ctx context.Context, pharmacyID int64, status model.VerificationStatus) (*model.Pharmacy, error) {
	p, err := scanPharmacy(r.pool.QueryRow(ctx,
		`UPDATE pharmacies SET verification_status = $2, is_verified = $3
		 WHERE id = $1
		 RETURNING `+pharmacyColumns,
		pharmacyID, string(status), status == model.VerificationVerified,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPharmacyNotFound
		}
		return nil, fmt.Errorf("update verification: %w", err)
	}
	return p, nil
}
