package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

type testProductService struct {
	listFn     func(ctx context.Context) ([]tracker.TrackedProduct, error)
	getFn      func(ctx context.Context, code string) (*tracker.TrackedProduct, error)
	historyFn  func(ctx context.Context, code string) ([]tracker.PricePoint, error)
	registerFn func(ctx context.Context, code string) (*tracker.TrackedProduct, error)
	removeFn   func(ctx context.Context, code string) error
	importFn   func(ctx context.Context, codes []string) (*tracker.ImportResult, error)
}

func (s *testProductService) List(ctx context.Context) ([]tracker.TrackedProduct, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *testProductService) Get(ctx context.Context, code string) (*tracker.TrackedProduct, error) {
	if s.getFn != nil {
		return s.getFn(ctx, code)
	}
	return nil, nil
}

func (s *testProductService) History(ctx context.Context, code string) ([]tracker.PricePoint, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, code)
	}
	return nil, nil
}

func (s *testProductService) Register(ctx context.Context, code string) (*tracker.TrackedProduct, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, code)
	}
	return nil, nil
}

func (s *testProductService) Remove(ctx context.Context, code string) error {
	if s.removeFn != nil {
		return s.removeFn(ctx, code)
	}
	return nil
}

func (s *testProductService) Import(ctx context.Context, codes []string) (*tracker.ImportResult, error) {
	if s.importFn != nil {
		return s.importFn(ctx, codes)
	}
	return nil, nil
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestProductListReturnsProducts(t *testing.T) {
	svc := &testProductService{
		listFn: func(ctx context.Context) ([]tracker.TrackedProduct, error) {
			return []tracker.TrackedProduct{tracker.NewTracked("789100"), tracker.NewTracked("789200")}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	ProductList(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data []tracker.TrackedProduct `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 products got %d", len(envelope.Data))
	}
	if envelope.Data[0].Code != "789100" {
		t.Fatalf("unexpected first code %q", envelope.Data[0].Code)
	}
}

func TestProductListEmptyIsArray(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	ProductList(&testProductService{}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"data":[]`) {
		t.Fatalf("expected empty array payload, got %s", resp.Body.String())
	}
}

func TestProductRegisterCreated(t *testing.T) {
	svc := &testProductService{
		registerFn: func(ctx context.Context, code string) (*tracker.TrackedProduct, error) {
			if code != "789100" {
				t.Fatalf("unexpected code %q", code)
			}
			product := tracker.NewTracked(code)
			return &product, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`{"code":"789100"}`))
	resp := httptest.NewRecorder()
	ProductRegister(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var envelope struct {
		Data tracker.TrackedProduct `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Status != tracker.StatusPending {
		t.Fatalf("unexpected status %q", envelope.Data.Status)
	}
}

func TestProductRegisterMissingCode(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	ProductRegister(&testProductService{}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductRegisterConflict(t *testing.T) {
	svc := &testProductService{
		registerFn: func(ctx context.Context, code string) (*tracker.TrackedProduct, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is already tracked")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`{"code":"789100"}`))
	resp := httptest.NewRecorder()
	ProductRegister(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Message != "product is already tracked" {
		t.Fatalf("unexpected message %q", envelope.Error.Message)
	}
}

func TestProductRemoveByCode(t *testing.T) {
	var removed string
	svc := &testProductService{
		removeFn: func(ctx context.Context, code string) error {
			removed = code
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/789100", nil)
	req = addRouteParam(req, "code", "789100")
	resp := httptest.NewRecorder()
	ProductRemove(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if removed != "789100" {
		t.Fatalf("unexpected removed code %q", removed)
	}
	var envelope struct {
		Data map[string]bool `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !envelope.Data["removed"] {
		t.Fatal("response missing removed flag")
	}
}

func TestProductRemoveUnknownCode(t *testing.T) {
	svc := &testProductService{
		removeFn: func(ctx context.Context, code string) error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product is not tracked")
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/999999", nil)
	req = addRouteParam(req, "code", "999999")
	resp := httptest.NewRecorder()
	ProductRemove(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestProductImportReportsCounts(t *testing.T) {
	svc := &testProductService{
		importFn: func(ctx context.Context, codes []string) (*tracker.ImportResult, error) {
			if len(codes) != 3 {
				t.Fatalf("expected 3 codes got %d", len(codes))
			}
			return &tracker.ImportResult{Added: 2, Duplicates: 1}, nil
		},
	}

	body := `{"codes":["789100","789200","789100"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", strings.NewReader(body))
	resp := httptest.NewRecorder()
	ProductImport(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data tracker.ImportResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Added != 2 || envelope.Data.Duplicates != 1 {
		t.Fatalf("unexpected counts %+v", envelope.Data)
	}
}

func TestProductImportEmptyBatchRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", strings.NewReader(`{"codes":[]}`))
	resp := httptest.NewRecorder()
	ProductImport(&testProductService{}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductHistoryReturnsPoints(t *testing.T) {
	svc := &testProductService{
		historyFn: func(ctx context.Context, code string) ([]tracker.PricePoint, error) {
			if code != "789100" {
				t.Fatalf("unexpected code %q", code)
			}
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/789100/history", nil)
	req = addRouteParam(req, "code", "789100")
	resp := httptest.NewRecorder()
	ProductHistory(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Code    string               `json:"code"`
			History []tracker.PricePoint `json:"history"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Code != "789100" {
		t.Fatalf("unexpected code %q", envelope.Data.Code)
	}
	if envelope.Data.History == nil {
		t.Fatal("expected empty history array, got null")
	}
}

func TestProductHistoryAppliesLimit(t *testing.T) {
	points := []tracker.PricePoint{
		{Price: decimal.RequireFromString("10.00")},
		{Price: decimal.RequireFromString("11.00")},
		{Price: decimal.RequireFromString("12.00")},
	}
	svc := &testProductService{
		historyFn: func(ctx context.Context, code string) ([]tracker.PricePoint, error) {
			return points, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/789100/history?limit=2", nil)
	req = addRouteParam(req, "code", "789100")
	resp := httptest.NewRecorder()
	ProductHistory(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			History []tracker.PricePoint `json:"history"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.History) != 2 {
		t.Fatalf("expected 2 points got %d", len(envelope.Data.History))
	}
	if !envelope.Data.History[0].Price.Equal(decimal.RequireFromString("11.00")) {
		t.Fatalf("expected oldest kept point 11.00, got %s", envelope.Data.History[0].Price)
	}
}

func TestProductHistoryRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/789100/history?limit=abc", nil)
	req = addRouteParam(req, "code", "789100")
	resp := httptest.NewRecorder()
	ProductHistory(&testProductService{}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductGetReturnsProduct(t *testing.T) {
	svc := &testProductService{
		getFn: func(ctx context.Context, code string) (*tracker.TrackedProduct, error) {
			product := tracker.NewTracked(code)
			product.Name = "Dipirona 500mg"
			return &product, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/789100", nil)
	req = addRouteParam(req, "code", "789100")
	resp := httptest.NewRecorder()
	ProductGet(svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data tracker.TrackedProduct `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Name != "Dipirona 500mg" {
		t.Fatalf("unexpected name %q", envelope.Data.Name)
	}
}
