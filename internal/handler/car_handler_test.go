package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/nehaPandit96/dealership/internal/car"
	"github.com/nehaPandit96/dealership/internal/middleware"
	"github.com/nehaPandit96/dealership/internal/model"
)

// --- モック定義 ---

type mockCarService struct {
	listFn            func(ctx context.Context) ([]*model.Car, error)
	getFn             func(ctx context.Context, id string) (*model.Car, error)
	addFn             func(ctx context.Context, input car.Input) (*model.Car, error)
	updateFn          func(ctx context.Context, id string, input car.Input) (*model.Car, error)
	deleteFn          func(ctx context.Context, id string) error
	markPendingSaleFn func(ctx context.Context, id string) error
	searchFn          func(ctx context.Context, filter model.CarFilter) ([]*model.Car, error)
}

func (m *mockCarService) List(ctx context.Context) ([]*model.Car, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockCarService) Get(ctx context.Context, id string) (*model.Car, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewCarNotFoundError(id)
}

func (m *mockCarService) Add(ctx context.Context, input car.Input) (*model.Car, error) {
	if m.addFn != nil {
		return m.addFn(ctx, input)
	}
	return &model.Car{ID: "car-new"}, nil
}

func (m *mockCarService) Update(ctx context.Context, id string, input car.Input) (*model.Car, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, input)
	}
	return &model.Car{ID: id}, nil
}

func (m *mockCarService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockCarService) MarkPendingSale(ctx context.Context, id string) error {
	if m.markPendingSaleFn != nil {
		return m.markPendingSaleFn(ctx, id)
	}
	return nil
}

func (m *mockCarService) Search(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, filter)
	}
	return nil, nil
}

type mockDenialRecorder struct {
	denied []string
}

func (m *mockDenialRecorder) RecordAuthzDenied(action string) {
	m.denied = append(m.denied, action)
}

// --- テストヘルパー ---

func adminIdentity() *model.Identity {
	return &model.Identity{UserID: "admin-1", DisplayName: "Taro Suzuki", Role: model.RoleAdmin}
}

func salespersonIdentity() *model.Identity {
	return &model.Identity{UserID: "sales-1", DisplayName: "Hanako Sato", Role: model.RoleSalesperson}
}

// requestWithIdentity は認証済みアイデンティティとURLパラメータ付きのリクエストを組み立てる。
func requestWithIdentity(method, target string, body string, identity *model.Identity, params map[string]string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	ctx := req.Context()
	if identity != nil {
		ctx = middleware.ContextWithIdentity(ctx, identity)
	}

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	return req.WithContext(ctx)
}

func validCarForm() url.Values {
	form := url.Values{}
	form.Set("manufacturer", "Toyota")
	form.Set("price", "25000")
	form.Set("model", "Corolla")
	form.Set("year", "2021")
	form.Add("images", "https://example.com/1.jpg")
	form.Add("images", "https://example.com/2.jpg")
	form.Set("color", "white")
	form.Set("engine_type", "I4")
	form.Set("vin", "123456789")
	form.Set("mileage", "15000")
	form.Set("fuel_type", "gasoline")
	form.Set("transmission_type", "automatic")
	return form
}

func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var body apiErrorResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

// --- ListCars ---

func TestListCars_ReturnsAllCars(t *testing.T) {
	svc := &mockCarService{
		listFn: func(ctx context.Context) ([]*model.Car, error) {
			return []*model.Car{
				{ID: "car-1", Manufacturer: "Toyota", Status: model.StatusAvailable},
				{ID: "car-2", Manufacturer: "Honda", Status: model.StatusSold},
			}, nil
		},
	}
	h := NewCarHandler(svc, nil)

	req := requestWithIdentity(http.MethodGet, "/", "", nil, nil)
	w := httptest.NewRecorder()

	h.ListCars(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body carListResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Cars) != 2 {
		t.Errorf("len(cars) = %d, want 2", len(body.Cars))
	}
}

// --- 認可 ---

func TestShowAddForm_Anonymous_Returns403(t *testing.T) {
	denials := &mockDenialRecorder{}
	h := NewCarHandler(&mockCarService{}, denials)

	req := requestWithIdentity(http.MethodGet, "/add", "", nil, nil)
	w := httptest.NewRecorder()

	h.ShowAddForm(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	if len(denials.denied) != 1 || denials.denied[0] != "add_car" {
		t.Errorf("denied = %v, want [add_car]", denials.denied)
	}
}

func TestShowAddForm_Admin_Returns204(t *testing.T) {
	h := NewCarHandler(&mockCarService{}, nil)

	req := requestWithIdentity(http.MethodGet, "/add", "", adminIdentity(), nil)
	w := httptest.NewRecorder()

	h.ShowAddForm(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

func TestAddCar_Salesperson_Returns403WithoutPersisting(t *testing.T) {
	addCalled := false
	svc := &mockCarService{
		addFn: func(ctx context.Context, input car.Input) (*model.Car, error) {
			addCalled = true
			return &model.Car{}, nil
		},
	}
	h := NewCarHandler(svc, nil)

	req := requestWithIdentity(http.MethodPost, "/add", validCarForm().Encode(), salespersonIdentity(), nil)
	w := httptest.NewRecorder()

	h.AddCar(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	if addCalled {
		t.Error("service must not be called when authorization fails")
	}

	body := decodeErrorResponse(t, w)
	if body.Code != model.ErrCodeForbidden {
		t.Errorf("Code = %q, want %q", body.Code, model.ErrCodeForbidden)
	}
}

func TestAddCar_Admin_PersistsAndRedirects(t *testing.T) {
	var received car.Input
	svc := &mockCarService{
		addFn: func(ctx context.Context, input car.Input) (*model.Car, error) {
			received = input
			return &model.Car{ID: "car-new"}, nil
		},
	}
	h := NewCarHandler(svc, nil)

	req := requestWithIdentity(http.MethodPost, "/add", validCarForm().Encode(), adminIdentity(), nil)
	w := httptest.NewRecorder()

	h.AddCar(w, req)

	if w.Result().StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusSeeOther)
	}
	if loc := w.Result().Header.Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
	if received.Manufacturer != "Toyota" {
		t.Errorf("Manufacturer = %q, want Toyota", received.Manufacturer)
	}
	if len(received.Images) != 2 {
		t.Errorf("len(Images) = %d, want 2", len(received.Images))
	}
}

func TestAddCar_ValidationFailure_Returns400WithFields(t *testing.T) {
	svc := &mockCarService{
		addFn: func(ctx context.Context, input car.Input) (*model.Car, error) {
			return nil, model.NewValidationError(map[string]string{"price": "数値で指定してください"})
		},
	}
	h := NewCarHandler(svc, nil)

	form := validCarForm()
	form.Set("price", "expensive")
	req := requestWithIdentity(http.MethodPost, "/add", form.Encode(), adminIdentity(), nil)
	w := httptest.NewRecorder()

	h.AddCar(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	body := decodeErrorResponse(t, w)
	if body.Fields["price"] == "" {
		t.Error("expected field-level error for price")
	}
}

// --- CarDetails ---

func TestCarDetails_Found_ReturnsCar(t *testing.T) {
	svc := &mockCarService{
		getFn: func(ctx context.Context, id string) (*model.Car, error) {
			return &model.Car{ID: id, Manufacturer: "Toyota", Status: model.StatusAvailable}, nil
		},
	}
	h := NewCarHandler(svc, nil)

	req := requestWithIdentity(http.MethodGet, "/cardetails/car-1", "", nil, map[string]string{"id": "car-1"})
	w := httptest.NewRecorder()

	h.CarDetails(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body carResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.ID != "car-1" {
		t.Errorf("ID = %q, want car-1", body.ID)
	}
}

func TestCarDetails_Missing_Returns404(t *testing.T) {
	h := NewCarHandler(&mockCarService{}, nil)

	req := requestWithIdentity(http.MethodGet, "/cardetails/missing", "", nil, map[string]string{"id": "missing"})
	w := httptest.NewRecorder()

	h.CarDetails(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

// --- 更新フォーム ---

func TestShowUpdateForm_Anonymous_Returns403(t *testing.T) {
	// フォーム表示側も送信側と同じ認可判定を通す
	getCalled := false
	svc := &mockCarService{
		getFn: func(ctx context.Context, id string) (*model.Car, error) {
			getCalled = true
			return &model.Car{ID: id}, nil
		},
	}
	h := NewCarHandler(svc, nil)

	req := requestWithIdentity(http.MethodGet, "/update/car-1", "", nil, map[string]string{"id": "car-1"})
	w := httptest.NewRecorder()

	h.ShowUpdateForm(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	if getCalled {
		t.Error("store must not be consulted when authorization fails")
	}
}

func TestShowUpdateForm_Salesperson_ReturnsCar(t *testing.T) {
	svc := &mockCarService{
		getFn: func(ctx context.Context, id string) (*model.Car, error) {
			return &model.Car{ID: id, Manufacturer: "Honda"}, nil
		},
	}
	h := NewCarHandler(svc, nil)

	req := requestWithIdentity(http.MethodGet, "/update/car-1", "", salespersonIdentity(), map[string]string{"id": "car-1"})
	w := httptest.NewRecorder()

	h.ShowUpdateForm(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestUpdateCar_Salesperson_Redirects(t *testing.T) {
	h := NewCarHandler(&mockCarService{}, nil)

	req := requestWithIdentity(http.MethodPost, "/update/car-1", validCarForm().Encode(), salespersonIdentity(), map[string]string{"id": "car-1"})
	w := httptest.NewRecorder()

	h.UpdateCar(w, req)

	if w.Result().StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusSeeOther)
	}
	if loc := w.Result().Header.Get("Location"); loc != "/cardetails/car-1" {
		t.Errorf("Location = %q, want /cardetails/car-1", loc)
	}
}

func TestUpdateCar_Missing_Returns404(t *testing.T) {
	svc := &mockCarService{
		updateFn: func(ctx context.Context, id string, input car.Input) (*model.Car, error) {
			return nil, model.NewCarNotFoundError(id)
		},
	}
	h := NewCarHandler(svc, nil)

	req := requestWithIdentity(http.MethodPost, "/update/missing", validCarForm().Encode(), adminIdentity(), map[string]string{"id": "missing"})
	w := httptest.NewRecorder()

	h.UpdateCar(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

// --- 削除 ---

func TestDeleteCar_Salesperson_Returns403(t *testing.T) {
	h := NewCarHandler(&mockCarService{}, nil)

	req := requestWithIdentity(http.MethodPost, "/deleteCar/car-1", "", salespersonIdentity(), map[string]string{"id": "car-1"})
	w := httptest.NewRecorder()

	h.DeleteCar(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestDeleteCar_Admin_RedirectsEvenIfAbsent(t *testing.T) {
	h := NewCarHandler(&mockCarService{}, nil)

	req := requestWithIdentity(http.MethodPost, "/deleteCar/already-gone", "", adminIdentity(), map[string]string{"id": "already-gone"})
	w := httptest.NewRecorder()

	h.DeleteCar(w, req)

	if w.Result().StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusSeeOther)
	}
}

// --- 商談中マーク ---

func TestMarkPendingSale_Salesperson_Redirects(t *testing.T) {
	var markedID string
	svc := &mockCarService{
		markPendingSaleFn: func(ctx context.Context, id string) error {
			markedID = id
			return nil
		},
	}
	h := NewCarHandler(svc, nil)

	req := requestWithIdentity(http.MethodPost, "/markPendingSale/car-1", "", salespersonIdentity(), map[string]string{"id": "car-1"})
	w := httptest.NewRecorder()

	h.MarkPendingSale(w, req)

	if w.Result().StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusSeeOther)
	}
	if markedID != "car-1" {
		t.Errorf("marked ID = %q, want car-1", markedID)
	}
}

func TestMarkPendingSale_Anonymous_Returns403(t *testing.T) {
	h := NewCarHandler(&mockCarService{}, nil)

	req := requestWithIdentity(http.MethodPost, "/markPendingSale/car-1", "", nil, map[string]string{"id": "car-1"})
	w := httptest.NewRecorder()

	h.MarkPendingSale(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

// --- 検索 ---

func TestSearchCars_BuildsConjunctiveFilter(t *testing.T) {
	var received model.CarFilter
	svc := &mockCarService{
		searchFn: func(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
			received = filter
			return []*model.Car{{ID: "car-1"}}, nil
		},
	}
	h := NewCarHandler(svc, nil)

	form := url.Values{}
	form.Set("manufacturer", "Toyota")
	form.Set("minYear", "2015")
	form.Set("maxYear", "2020")
	req := requestWithIdentity(http.MethodPost, "/search", form.Encode(), nil, nil)
	w := httptest.NewRecorder()

	h.SearchCars(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if received.Manufacturer == nil || *received.Manufacturer != "Toyota" {
		t.Error("manufacturer filter missing")
	}
	if received.MinYear == nil || *received.MinYear != 2015 {
		t.Error("minYear filter missing")
	}
	if received.MaxYear == nil || *received.MaxYear != 2020 {
		t.Error("maxYear filter missing")
	}
	if received.Model != nil || received.MinPrice != nil || received.MaxPrice != nil {
		t.Error("absent filters must stay nil")
	}
}

func TestSearchCars_HalfOpenRange_IsHonored(t *testing.T) {
	var received model.CarFilter
	svc := &mockCarService{
		searchFn: func(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
			received = filter
			return nil, nil
		},
	}
	h := NewCarHandler(svc, nil)

	form := url.Values{}
	form.Set("minPrice", "10000")
	req := requestWithIdentity(http.MethodPost, "/search", form.Encode(), nil, nil)
	w := httptest.NewRecorder()

	h.SearchCars(w, req)

	if received.MinPrice == nil || *received.MinPrice != 10000 {
		t.Error("half-open price range must be passed through")
	}
	if received.MaxPrice != nil {
		t.Error("unspecified max bound must stay nil")
	}
}

func TestSearchCars_NonNumericRange_Returns400(t *testing.T) {
	searchCalled := false
	svc := &mockCarService{
		searchFn: func(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
			searchCalled = true
			return nil, nil
		},
	}
	h := NewCarHandler(svc, nil)

	form := url.Values{}
	form.Set("minYear", "not-a-year")
	req := requestWithIdentity(http.MethodPost, "/search", form.Encode(), nil, nil)
	w := httptest.NewRecorder()

	h.SearchCars(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	if searchCalled {
		t.Error("service must not be called on invalid filter input")
	}

	body := decodeErrorResponse(t, w)
	if body.Fields["minYear"] == "" {
		t.Error("expected field-level error for minYear")
	}
}

func TestShowSearchForm_ReturnsEmptyResults(t *testing.T) {
	h := NewCarHandler(&mockCarService{}, nil)

	req := requestWithIdentity(http.MethodGet, "/search", "", nil, nil)
	w := httptest.NewRecorder()

	h.ShowSearchForm(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body carListResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Cars) != 0 {
		t.Errorf("len(cars) = %d, want 0", len(body.Cars))
	}
}
