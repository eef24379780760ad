package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nehaPandit96/dealership/internal/authz"
	"github.com/nehaPandit96/dealership/internal/car"
	"github.com/nehaPandit96/dealership/internal/middleware"
	"github.com/nehaPandit96/dealership/internal/model"
)

// CarServiceInterface は車両ハンドラーが必要とするサービスインターフェース。
type CarServiceInterface interface {
	// List は全車両を返す。
	List(ctx context.Context) ([]*model.Car, error)
	// Get はIDで車両を取得する。見つからない場合はCAR_NOT_FOUNDを返す。
	Get(ctx context.Context, id string) (*model.Car, error)
	// Add は車両を検証して登録する。
	Add(ctx context.Context, input car.Input) (*model.Car, error)
	// Update は車両を検証して更新する。
	Update(ctx context.Context, id string, input car.Input) (*model.Car, error)
	// Delete は車両を削除する。存在しないIDでもエラーにしない。
	Delete(ctx context.Context, id string) error
	// MarkPendingSale はステータスのみを商談中に変更する。
	MarkPendingSale(ctx context.Context, id string) error
	// Search は条件に合致する車両を返す。
	Search(ctx context.Context, filter model.CarFilter) ([]*model.Car, error)
}

// AuthzDenialRecorder は認可拒否メトリクスの記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type AuthzDenialRecorder interface {
	RecordAuthzDenied(action string)
}

// CarHandler は在庫車両のHTTPハンドラー。
type CarHandler struct {
	service CarServiceInterface
	denials AuthzDenialRecorder
}

// NewCarHandler はCarHandlerを生成する。
func NewCarHandler(service CarServiceInterface, denials AuthzDenialRecorder) *CarHandler {
	return &CarHandler{
		service: service,
		denials: denials,
	}
}

// carResponse は車両情報のAPIレスポンス。
type carResponse struct {
	ID               string    `json:"id"`
	Manufacturer     string    `json:"manufacturer"`
	Price            float64   `json:"price"`
	Model            string    `json:"model"`
	Year             int       `json:"year"`
	Images           []string  `json:"images"`
	Color            string    `json:"color"`
	EngineType       string    `json:"engine_type"`
	VIN              int64     `json:"vin"`
	Mileage          int       `json:"mileage"`
	FuelType         string    `json:"fuel_type"`
	TransmissionType string    `json:"transmission_type"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// carListResponse は車両一覧のAPIレスポンス。
type carListResponse struct {
	Cars []carResponse `json:"cars"`
}

func toCarResponse(c *model.Car) carResponse {
	images := c.Images
	if images == nil {
		images = []string{}
	}
	return carResponse{
		ID:               c.ID,
		Manufacturer:     c.Manufacturer,
		Price:            c.Price,
		Model:            c.Model,
		Year:             c.Year,
		Images:           images,
		Color:            c.Color,
		EngineType:       c.EngineType,
		VIN:              c.VIN,
		Mileage:          c.Mileage,
		FuelType:         c.FuelType,
		TransmissionType: c.TransmissionType,
		Status:           string(c.Status),
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func toCarListResponse(cars []*model.Car) carListResponse {
	results := make([]carResponse, len(cars))
	for i, c := range cars {
		results[i] = toCarResponse(c)
	}
	return carListResponse{Cars: results}
}

// authorize はリクエストのアイデンティティに対してポリシーを評価する。
// 拒否された場合は403を書き込み、アクション別の拒否メトリクスを記録する。
// フォーム表示と送信の両方でこの判定を通す。
func (h *CarHandler) authorize(w http.ResponseWriter, r *http.Request, action authz.Action) bool {
	identity, _ := middleware.IdentityFromContext(r.Context())
	if authz.Decide(identity, action) == authz.Deny {
		if h.denials != nil {
			h.denials.RecordAuthzDenied(string(action))
		}
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return false
	}
	return true
}

// ListCars は車両一覧を返す。
// GET /
func (h *CarHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCarListResponse(cars))
}

// ShowAddForm は車両登録フォームの表示を処理する。
// GET /add
func (h *CarHandler) ShowAddForm(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, authz.ActionAddCar) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddCar は車両登録を処理する。
// POST /add
func (h *CarHandler) AddCar(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, authz.ActionAddCar) {
		return
	}

	input, ok := parseCarForm(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Add(r.Context(), input); err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// CarDetails は車両詳細を返す。
// GET /cardetails/:id
func (h *CarHandler) CarDetails(w http.ResponseWriter, r *http.Request) {
	carID := chi.URLParam(r, "id")

	c, err := h.service.Get(r.Context(), carID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCarResponse(c))
}

// ShowUpdateForm は車両更新フォームの表示を処理する。
// 送信側と同じ認可判定を通し、フォームへ事前入力する車両を返す。
// GET /update/:id
func (h *CarHandler) ShowUpdateForm(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, authz.ActionUpdateCar) {
		return
	}

	carID := chi.URLParam(r, "id")

	c, err := h.service.Get(r.Context(), carID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCarResponse(c))
}

// UpdateCar は車両更新を処理する。
// POST /update/:id
func (h *CarHandler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, authz.ActionUpdateCar) {
		return
	}

	carID := chi.URLParam(r, "id")

	input, ok := parseCarForm(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Update(r.Context(), carID, input); err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, "/cardetails/"+carID, http.StatusSeeOther)
}

// DeleteCar は車両削除を処理する。
// POST /deleteCar/:id
func (h *CarHandler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, authz.ActionDeleteCar) {
		return
	}

	carID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), carID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// MarkPendingSale はステータスを商談中に変更する。
// POST /markPendingSale/:id
func (h *CarHandler) MarkPendingSale(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, authz.ActionMarkPendingSale) {
		return
	}

	carID := chi.URLParam(r, "id")

	if err := h.service.MarkPendingSale(r.Context(), carID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, "/cardetails/"+carID, http.StatusSeeOther)
}

// ShowSearchForm は検索フォームの表示を処理する。結果は空で返す。
// GET /search
func (h *CarHandler) ShowSearchForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, carListResponse{Cars: []carResponse{}})
}

// SearchCars は車両検索を処理する。
// すべての条件はANDで結合し、未指定の条件はクエリから省略する。
// POST /search
func (h *CarHandler) SearchCars(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseSearchForm(w, r)
	if !ok {
		return
	}

	cars, err := h.service.Search(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCarListResponse(cars))
}

// parseCarForm はフォーム送信から車両入力を組み立てる。
// フィールドの検証はサービス層が行う。
func parseCarForm(w http.ResponseWriter, r *http.Request) (car.Input, bool) {
	if err := r.ParseForm(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(map[string]string{
			"body": "フォームの解析に失敗しました",
		}))
		return car.Input{}, false
	}

	return car.Input{
		Manufacturer:     r.PostFormValue("manufacturer"),
		Price:            r.PostFormValue("price"),
		Model:            r.PostFormValue("model"),
		Year:             r.PostFormValue("year"),
		Images:           r.PostForm["images"],
		Color:            r.PostFormValue("color"),
		EngineType:       r.PostFormValue("engine_type"),
		VIN:              r.PostFormValue("vin"),
		Mileage:          r.PostFormValue("mileage"),
		FuelType:         r.PostFormValue("fuel_type"),
		TransmissionType: r.PostFormValue("transmission_type"),
		Status:           r.PostFormValue("status"),
	}, true
}

// parseSearchForm はフォーム送信から検索条件を組み立てる。
// 空のフィールドは条件に含めない。片側のみの範囲指定も有効な条件として扱う。
func parseSearchForm(w http.ResponseWriter, r *http.Request) (model.CarFilter, bool) {
	if err := r.ParseForm(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(map[string]string{
			"body": "フォームの解析に失敗しました",
		}))
		return model.CarFilter{}, false
	}

	var filter model.CarFilter
	fields := make(map[string]string)

	if v := strings.TrimSpace(r.FormValue("manufacturer")); v != "" {
		filter.Manufacturer = &v
	}
	if v := strings.TrimSpace(r.FormValue("model")); v != "" {
		filter.Model = &v
	}
	if v := strings.TrimSpace(r.FormValue("minYear")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.MinYear = &n
		} else {
			fields["minYear"] = "整数で指定してください"
		}
	}
	if v := strings.TrimSpace(r.FormValue("maxYear")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.MaxYear = &n
		} else {
			fields["maxYear"] = "整数で指定してください"
		}
	}
	if v := strings.TrimSpace(r.FormValue("minPrice")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = &f
		} else {
			fields["minPrice"] = "数値で指定してください"
		}
	}
	if v := strings.TrimSpace(r.FormValue("maxPrice")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &f
		} else {
			fields["maxPrice"] = "数値で指定してください"
		}
	}

	if len(fields) > 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(fields))
		return model.CarFilter{}, false
	}

	return filter, true
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
