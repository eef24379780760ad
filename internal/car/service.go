// Package car は在庫車両のドメインロジックを提供する。
package car

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nehaPandit96/dealership/internal/model"
	"github.com/nehaPandit96/dealership/internal/repository"
)

// Input は車両登録・更新フォームの入力。
// 数値フィールドもフォーム値のまま文字列で受け取り、検証時に変換する。
type Input struct {
	Manufacturer     string
	Price            string
	Model            string
	Year             string
	Images           []string
	Color            string
	EngineType       string
	VIN              string
	Mileage          string
	FuelType         string
	TransmissionType string
	Status           string // 空の場合はavailable
}

// Service は在庫車両のサービス層。
type Service struct {
	repo repository.CarRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.CarRepository) *Service {
	return &Service{repo: repo}
}

// List は全車両を作成日時の新しい順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Car, error) {
	cars, err := s.repo.Find(ctx, model.CarFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	return cars, nil
}

// Get は指定IDの車両を返す。見つからない場合はCarNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Car, error) {
	car, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	if car == nil {
		return nil, model.NewCarNotFoundError(id)
	}
	return car, nil
}

// Add は入力を検証して車両を登録する。
// 検証失敗時は永続化せずフィールド単位のエラーを返す。
func (s *Service) Add(ctx context.Context, input Input) (*model.Car, error) {
	car, err := buildCar(input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	car.ID = uuid.New().String()
	car.CreatedAt = now
	car.UpdatedAt = now

	if err := s.repo.Create(ctx, car); err != nil {
		return nil, fmt.Errorf("failed to create car: %w", err)
	}

	slog.Info("car added",
		slog.String("car_id", car.ID),
		slog.String("manufacturer", car.Manufacturer),
		slog.String("model", car.Model),
	)

	return car, nil
}

// Update は指定IDの車両を入力内容で上書き更新する。
// 対象が存在しない場合はCarNotFoundエラーを返す。
// バージョン検査は行わないlast-writer-winsであり、
// 同一車両への同時更新は後勝ちになる。
func (s *Service) Update(ctx context.Context, id string, input Input) (*model.Car, error) {
	car, err := buildCar(input)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateByID(ctx, id, car)
	if err != nil {
		return nil, fmt.Errorf("failed to update car: %w", err)
	}
	if !updated {
		return nil, model.NewCarNotFoundError(id)
	}

	slog.Info("car updated", slog.String("car_id", id))

	car.ID = id
	return car, nil
}

// Delete は指定IDの車両を削除する。
// 既に存在しないIDの削除もエラーとして扱わない（冪等）。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete car: %w", err)
	}

	slog.Info("car deleted", slog.String("car_id", id))
	return nil
}

// MarkPendingSale は指定IDの車両のステータスのみをpending saleに変更する。
// 汎用更新の検証ルールとは独立して動作し、他フィールドには触れない。
func (s *Service) MarkPendingSale(ctx context.Context, id string) error {
	updated, err := s.repo.UpdateStatus(ctx, id, model.StatusPendingSale)
	if err != nil {
		return fmt.Errorf("failed to mark pending sale: %w", err)
	}
	if !updated {
		return model.NewCarNotFoundError(id)
	}

	slog.Info("car marked pending sale", slog.String("car_id", id))
	return nil
}

// Search はフィルタに合致する車両一覧を返す。
// 全条件はAND結合で、未指定の条件は検索対象にしない。
// 片側のみの範囲指定（最小のみ・最大のみ）も条件として有効。
func (s *Service) Search(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
	cars, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search cars: %w", err)
	}
	return cars, nil
}

// buildCar は入力を検証してmodel.Carに変換する。
// 検証エラーはフィールド単位にまとめて返す。
func buildCar(input Input) (*model.Car, error) {
	fields := map[string]string{}

	car := &model.Car{
		Manufacturer:     strings.TrimSpace(input.Manufacturer),
		Model:            strings.TrimSpace(input.Model),
		Color:            strings.TrimSpace(input.Color),
		EngineType:       strings.TrimSpace(input.EngineType),
		FuelType:         strings.TrimSpace(input.FuelType),
		TransmissionType: strings.TrimSpace(input.TransmissionType),
	}

	requireText(fields, "manufacturer", car.Manufacturer)
	requireText(fields, "model", car.Model)
	requireText(fields, "color", car.Color)
	requireText(fields, "engineType", car.EngineType)
	requireText(fields, "fuelType", car.FuelType)
	requireText(fields, "transmissionType", car.TransmissionType)

	if price, ok := parseFloat(fields, "price", input.Price); ok {
		if price < 0 {
			fields["price"] = "価格は0以上で入力してください。"
		} else {
			car.Price = price
		}
	}

	if year, ok := parseInt(fields, "year", input.Year); ok {
		car.Year = year
	}

	if vin, ok := parseInt64(fields, "vin", input.VIN); ok {
		car.VIN = vin
	}

	if mileage, ok := parseInt(fields, "mileage", input.Mileage); ok {
		if mileage < 0 {
			fields["mileage"] = "走行距離は0以上で入力してください。"
		} else {
			car.Mileage = mileage
		}
	}

	// 画像URLは順序を保持し、空要素のみ除外する
	for _, img := range input.Images {
		if trimmed := strings.TrimSpace(img); trimmed != "" {
			car.Images = append(car.Images, trimmed)
		}
	}

	status := model.CarStatus(strings.TrimSpace(input.Status))
	if status == "" {
		status = model.StatusAvailable
	}
	if !model.ValidCarStatus(status) {
		fields["status"] = "ステータスはavailable、pending sale、soldのいずれかを指定してください。"
	} else {
		car.Status = status
	}

	if len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}
	return car, nil
}

func requireText(fields map[string]string, name, value string) {
	if value == "" {
		fields[name] = "必須項目です。"
	}
}

func parseFloat(fields map[string]string, name, value string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		fields[name] = "数値で入力してください。"
		return 0, false
	}
	return v, true
}

func parseInt(fields map[string]string, name, value string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		fields[name] = "整数で入力してください。"
		return 0, false
	}
	return v, true
}

func parseInt64(fields map[string]string, name, value string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		fields[name] = "整数で入力してください。"
		return 0, false
	}
	return v, true
}
