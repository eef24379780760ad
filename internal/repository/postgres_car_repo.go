package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/nehaPandit96/dealership/internal/model"
)

// PostgresCarRepo はPostgreSQLを使用した車両リポジトリ。
type PostgresCarRepo struct {
	db *sql.DB
}

// NewPostgresCarRepo はPostgresCarRepoを生成する。
func NewPostgresCarRepo(db *sql.DB) *PostgresCarRepo {
	return &PostgresCarRepo{db: db}
}

const carColumns = `id, manufacturer, price, model, year, images, color,
	engine_type, vin, mileage, fuel_type, transmission_type, status,
	created_at, updated_at`

// scanCar は1行をmodel.Carに読み取る。
func scanCar(row interface{ Scan(...any) error }) (*model.Car, error) {
	car := &model.Car{}
	err := row.Scan(
		&car.ID, &car.Manufacturer, &car.Price, &car.Model, &car.Year,
		pq.Array(&car.Images), &car.Color, &car.EngineType, &car.VIN,
		&car.Mileage, &car.FuelType, &car.TransmissionType, &car.Status,
		&car.CreatedAt, &car.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return car, nil
}

// Find はフィルタに合致する車両一覧を返す。
// 指定された条件のみWHERE句に加える（未指定の条件はSQLに現れない）。
func (r *PostgresCarRepo) Find(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
	var conds []string
	var args []any

	addCond := func(expr string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if filter.Manufacturer != nil {
		addCond("manufacturer = $%d", *filter.Manufacturer)
	}
	if filter.Model != nil {
		addCond("model = $%d", *filter.Model)
	}
	if filter.MinYear != nil {
		addCond("year >= $%d", *filter.MinYear)
	}
	if filter.MaxYear != nil {
		addCond("year <= $%d", *filter.MaxYear)
	}
	if filter.MinPrice != nil {
		addCond("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		addCond("price <= $%d", *filter.MaxPrice)
	}

	query := `SELECT ` + carColumns + ` FROM cars`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cars: %w", err)
	}
	defer rows.Close()

	var cars []*model.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cars: %w", err)
	}

	return cars, nil
}

// FindByID は指定IDの車両を取得する。見つからない場合はnilを返す。
func (r *PostgresCarRepo) FindByID(ctx context.Context, id string) (*model.Car, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+carColumns+` FROM cars WHERE id = $1`, id)

	car, err := scanCar(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find car by ID: %w", err)
	}

	return car, nil
}

// Create は車両を作成する。
func (r *PostgresCarRepo) Create(ctx context.Context, car *model.Car) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cars (id, manufacturer, price, model, year, images, color,
		 engine_type, vin, mileage, fuel_type, transmission_type, status,
		 created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		car.ID, car.Manufacturer, car.Price, car.Model, car.Year,
		pq.Array(car.Images), car.Color, car.EngineType, car.VIN,
		car.Mileage, car.FuelType, car.TransmissionType, car.Status,
		car.CreatedAt, car.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create car: %w", err)
	}
	return nil
}

// UpdateByID は指定IDの車両の全フィールドを上書き更新する。
// 対象が存在しない場合はfalseを返す。
func (r *PostgresCarRepo) UpdateByID(ctx context.Context, id string, car *model.Car) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cars SET manufacturer = $2, price = $3, model = $4, year = $5,
		 images = $6, color = $7, engine_type = $8, vin = $9, mileage = $10,
		 fuel_type = $11, transmission_type = $12, status = $13, updated_at = now()
		 WHERE id = $1`,
		id, car.Manufacturer, car.Price, car.Model, car.Year,
		pq.Array(car.Images), car.Color, car.EngineType, car.VIN,
		car.Mileage, car.FuelType, car.TransmissionType, car.Status,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update car: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpdateStatus は指定IDの車両のステータスのみ更新する。
// 対象が存在しない場合はfalseを返す。
func (r *PostgresCarRepo) UpdateStatus(ctx context.Context, id string, status model.CarStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cars SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update car status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByID は指定IDの車両を削除する。既に存在しない場合もエラーとしない。
func (r *PostgresCarRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cars WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete car: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CarRepository = (*PostgresCarRepo)(nil)
