package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomatolabs/bookstore-backend/pkg/db/models"
)

type stubStockAdmin struct {
	adjust func(ctx context.Context, productID uuid.UUID, available, reserved int) (*models.StockRecord, error)
}

func (s *stubStockAdmin) Adjust(ctx context.Context, productID uuid.UUID, available, reserved int) (*models.StockRecord, error) {
	if s.adjust != nil {
		return s.adjust(ctx, productID, available, reserved)
	}
	return nil, nil
}

func adminStockRequest(productID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/api/admin/v1/products/"+productID+"/stockpile", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", productID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAdminSetStockUpdatesBothCounters(t *testing.T) {
	productID := uuid.New()
	svc := &stubStockAdmin{
		adjust: func(ctx context.Context, gotProduct uuid.UUID, available, reserved int) (*models.StockRecord, error) {
			if gotProduct != productID {
				t.Fatalf("unexpected product id %s", gotProduct)
			}
			if available != 40 {
				t.Fatalf("unexpected available %d", available)
			}
			if reserved != 3 {
				t.Fatalf("unexpected reserved %d", reserved)
			}
			return &models.StockRecord{ProductID: productID, Available: 40, Reserved: 3}, nil
		},
	}

	resp := httptest.NewRecorder()
	AdminSetStock(svc, nil).ServeHTTP(resp, adminStockRequest(productID.String(), `{"available":40,"reserved":3}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data stockView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Available != 40 || envelope.Data.Reserved != 3 {
		t.Fatalf("unexpected view %+v", envelope.Data)
	}
}

func TestAdminSetStockRejectsNegative(t *testing.T) {
	resp := httptest.NewRecorder()
	AdminSetStock(&stubStockAdmin{}, nil).ServeHTTP(resp, adminStockRequest(uuid.NewString(), `{"available":-5,"reserved":0}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	AdminSetStock(&stubStockAdmin{}, nil).ServeHTTP(resp, adminStockRequest(uuid.NewString(), `{"available":5,"reserved":-1}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminSetStockRequiresBothCounters(t *testing.T) {
	resp := httptest.NewRecorder()
	AdminSetStock(&stubStockAdmin{}, nil).ServeHTTP(resp, adminStockRequest(uuid.NewString(), `{}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	AdminSetStock(&stubStockAdmin{}, nil).ServeHTTP(resp, adminStockRequest(uuid.NewString(), `{"available":1}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminSetStockRejectsMalformedProductID(t *testing.T) {
	resp := httptest.NewRecorder()
	AdminSetStock(&stubStockAdmin{}, nil).ServeHTTP(resp, adminStockRequest("not-a-uuid", `{"available":1,"reserved":0}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
