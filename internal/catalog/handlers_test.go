package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/catalog"
)

type productsResponse struct {
	Data []catalog.Product `json:"data"`
}

type productResponse struct {
	Data    catalog.Product `json:"data"`
	Message string          `json:"message"`
}

type errorResponse struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCatalogHandlers(t *testing.T) {
	svc, _ := newTestService(t, nil)
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: svc})

	t.Run("products list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 3)
		require.Equal(t, "상품1", resp.Data[0].Name)
	})

	t.Run("product detail", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/p2", nil), "id", "p2")
		rec := httptest.NewRecorder()
		handler.Product(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, int64(20000), resp.Data.Price)
		require.True(t, resp.Data.IsRecommended)
	})

	t.Run("product missing", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil), "id", "nope")
		rec := httptest.NewRecorder()
		handler.Product(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "NOT_FOUND", resp.Error.Code)
	})

	t.Run("admin create", func(t *testing.T) {
		body := `{"name":"상품4","price":12000,"stock":5,"discounts":[{"quantity":3,"rate":0.1}]}`
		rec := httptest.NewRecorder()
		handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code)
		var resp productResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "상품이 추가되었습니다.", resp.Message)
		require.Equal(t, "p1700000000000", resp.Data.ID)
	})

	t.Run("admin create rejects payload", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(`{"name":"","price":0}`)))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		require.Contains(t, resp.Error.Details, "price")
	})

	t.Run("admin update and delete", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest(http.MethodPatch, "/api/v1/admin/products/p1", strings.NewReader(`{"stock":7}`)), "id", "p1")
		rec := httptest.NewRecorder()
		handler.Update(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 7, resp.Data.Stock)
		require.Equal(t, "상품이 수정되었습니다.", resp.Message)

		req = withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products/p1", nil), "id", "p1")
		rec = httptest.NewRecorder()
		handler.Delete(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "상품이 삭제되었습니다.")
	})

	t.Run("field validation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ValidateField(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/validate", strings.NewReader(`{"field":"stock","value":"12000"}`)))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data catalog.FieldCheck `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.False(t, resp.Data.Valid)
		require.Equal(t, int64(9999), resp.Data.Corrected)
	})

	t.Run("unconfigured", func(t *testing.T) {
		rec := httptest.NewRecorder()
		catalog.NewHandler(catalog.HandlerConfig{}).Products(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
