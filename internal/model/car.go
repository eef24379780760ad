// Package model はドメインモデルを定義する。
package model

import "time"

// CarStatus は車両の販売ステータスを表す。
type CarStatus string

const (
	// StatusAvailable は販売可能な車両を示す。
	StatusAvailable CarStatus = "available"
	// StatusPendingSale は商談中の車両を示す。
	StatusPendingSale CarStatus = "pending sale"
	// StatusSold は売約済みの車両を示す。
	StatusSold CarStatus = "sold"
)

// ValidCarStatus はsが定義済みのステータス値かどうかを返す。
func ValidCarStatus(s CarStatus) bool {
	switch s {
	case StatusAvailable, StatusPendingSale, StatusSold:
		return true
	}
	return false
}

// Car は在庫車両を表す。
type Car struct {
	ID               string
	Manufacturer     string
	Price            float64
	Model            string
	Year             int
	Images           []string
	Color            string
	EngineType       string
	VIN              int64
	Mileage          int
	FuelType         string
	TransmissionType string
	Status           CarStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CarFilter は車両検索の条件を表す。
// nilのフィールドは条件として使用しない（ワイルドカード扱いではなく条件自体を省略する）。
// 片側のみ指定された範囲（MinYearのみ等）も有効な条件として扱う。
type CarFilter struct {
	Manufacturer *string
	Model        *string
	MinYear      *int
	MaxYear      *int
	MinPrice     *float64
	MaxPrice     *float64
}

// Empty はフィルタ条件が1つも指定されていない場合にtrueを返す。
func (f CarFilter) Empty() bool {
	return f.Manufacturer == nil && f.Model == nil &&
		f.MinYear == nil && f.MaxYear == nil &&
		f.MinPrice == nil && f.MaxPrice == nil
}
