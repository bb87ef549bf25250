package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ahmadou44/fadj-ma/internal/model"
)

// escapeLike экранирует спецсимволы шаблона LIKE, чтобы пользовательский
// запрос трактовался как буквальная подстрока.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpsertStock добавляет позицию склада аптеки. Препарат создаётся по имени,
// если его ещё нет в каталоге; существующая позиция (аптека, препарат)
// обновляется, дубликаты не создаются.
func (r *PostgresRepository) UpsertStock(ctx context.Context, pharmacyID int64, drug model.Drug, quantity, price int64) (*model.Stock, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// DO UPDATE вместо DO NOTHING, чтобы RETURNING отдавал id и для
	// существующей строки.
	var drugID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO drugs (name, form, class) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		drug.Name, drug.Form, drug.Class,
	).Scan(&drugID)
	if err != nil {
		return nil, fmt.Errorf("upsert drug: %w", err)
	}

	var s model.Stock
	err = tx.QueryRow(ctx,
		`INSERT INTO stocks (pharmacy_id, drug_id, quantity, price) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (pharmacy_id, drug_id) DO UPDATE SET quantity = EXCLUDED.quantity, price = EXCLUDED.price
		 RETURNING id, pharmacy_id, drug_id, quantity, price`,
		pharmacyID, drugID, quantity, price,
	).Scan(&s.ID, &s.PharmacyID, &s.DrugID, &s.Quantity, &s.Price)
	if err != nil {
		return nil, fmt.Errorf("upsert stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &s, nil
}

// ListInventory возвращает все позиции склада аптеки вместе с препаратами.
func (r *PostgresRepository) ListInventory(ctx context.Context, pharmacyID int64) ([]model.StockListing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.pharmacy_id, s.drug_id, s.quantity, s.price,
		        d.id, d.name, d.form, d.class
		 FROM stocks s
		 JOIN drugs d ON d.id = s.drug_id
		 WHERE s.pharmacy_id = $1
		 ORDER BY d.name`,
		pharmacyID,
	)
	if err != nil {
		return nil, fmt.Errorf("select inventory: %w", err)
	}
	defer rows.Close()

	var res []model.StockListing
	for rows.Next() {
		var l model.StockListing
		err := rows.Scan(&l.Stock.ID, &l.Stock.PharmacyID, &l.Stock.DrugID, &l.Stock.Quantity, &l.Stock.Price,
			&l.Drug.ID, &l.Drug.Name, &l.Drug.Form, &l.Drug.Class)
		if err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		res = append(res, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SearchStock ищет позиции склада по подстроке имени препарата.
// Поиск регистрозависимый, запрос трактуется как буквальная подстрока:
// % и _ в нём не работают как шаблоны. Возвращаются только позиции с наличием.
func (r *PostgresRepository) SearchStock(ctx context.Context, query string) ([]model.StockListing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.pharmacy_id, s.drug_id, s.quantity, s.price,
		        d.id, d.name, d.form, d.class,
		        p.id, p.user_id, p.name, p.address, p.latitude, p.longitude,
		        p.verification_status, p.is_verified, p.created_at
		 FROM stocks s
		 JOIN drugs d ON d.id = s.drug_id
		 JOIN pharmacies p ON p.id = s.pharmacy_id
		 WHERE d.name LIKE '%' || $1 || '%' ESCAPE '\' AND s.quantity > 0`,
		escapeLike(query),
	)
	if err != nil {
		return nil, fmt.Errorf("search stock: %w", err)
	}
	defer rows.Close()

	var res []model.StockListing
	for rows.Next() {
		var l model.StockListing
		var status string
		err := rows.Scan(&l.Stock.ID, &l.Stock.PharmacyID, &l.Stock.DrugID, &l.Stock.Quantity, &l.Stock.Price,
			&l.Drug.ID, &l.Drug.Name, &l.Drug.Form, &l.Drug.Class,
			&l.Pharmacy.ID, &l.Pharmacy.UserID, &l.Pharmacy.Name, &l.Pharmacy.Address,
			&l.Pharmacy.Latitude, &l.Pharmacy.Longitude, &status, &l.Pharmacy.IsVerified, &l.Pharmacy.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		l.Pharmacy.VerificationStatus = model.VerificationStatus(status)
		res = append(res, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// DecrementStock атомарно уменьшает остаток позиции, не опускаясь ниже нуля.
func (r *PostgresRepository) DecrementStock(ctx context.Context, pharmacyID, drugID, quantity int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE stocks SET quantity = GREATEST(quantity - $3, 0)
		 WHERE pharmacy_id = $1 AND drug_id = $2`,
		pharmacyID, drugID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return nil
}

// ListDrugs возвращает глобальный каталог препаратов для админского портала.
func (r *PostgresRepository) ListDrugs(ctx context.Context) ([]model.Drug, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, form, class FROM drugs ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("select drugs: %w", err)
	}
	defer rows.Close()

	var res []model.Drug
	for rows.Next() {
		var d model.Drug
		if err := rows.Scan(&d.ID, &d.Name, &d.Form, &d.Class); err != nil {
			return nil, fmt.Errorf("scan drug: %w", err)
		}
		res = append(res, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
