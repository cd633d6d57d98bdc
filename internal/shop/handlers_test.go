package shop_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/shop"
)

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	h := newHarness(t)
	r := chi.NewRouter()
	r.Route("/api/v1/carts", func(r chi.Router) {
		shop.NewHandler(h.svc).Routes(r, nil)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var env envelope
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr, env
}

func TestCartHandlersFlow(t *testing.T) {
	router := newRouter(t)

	rr, env := do(t, router, http.MethodPost, "/api/v1/carts", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var created shop.View
	require.NoError(t, json.Unmarshal(env.Data, &created))
	base := "/api/v1/carts/" + created.SessionID
	require.Equal(t, base, rr.Header().Get("Location"))

	rr, env = do(t, router, http.MethodPost, base+"/items", `{"productId":"p1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "장바구니에 담았습니다", env.Message)

	rr, env = do(t, router, http.MethodPatch, base+"/items/p1", `{"quantity":10}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var view shop.View
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Equal(t, int64(85000), view.Totals.TotalAfterDiscount)

	rr, env = do(t, router, http.MethodPatch, base+"/items/p1", `{"quantity":50}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "QUANTITY_EXCEEDS_STOCK", env.Error.Code)

	rr, _ = do(t, router, http.MethodPatch, base+"/items/p1", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr, env = do(t, router, http.MethodPost, base+"/coupon", `{"code":"PERCENT10"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Equal(t, int64(76500), view.Totals.TotalAfterDiscount)

	rr, env = do(t, router, http.MethodPost, base+"/checkout", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	require.True(t, strings.HasPrefix(env.Message, "주문이 완료되었습니다. 주문번호: ORD-"))

	rr, env = do(t, router, http.MethodGet, base+"/notifications", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.NotEmpty(t, items)
	require.Equal(t, "success", items[0]["type"])

	rr, _ = do(t, router, http.MethodDelete, base+"/notifications/"+items[0]["id"].(string), "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr, _ = do(t, router, http.MethodDelete, base, "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr, env = do(t, router, http.MethodGet, base, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}

func TestCartHandlersRejectUnknownFields(t *testing.T) {
	router := newRouter(t)
	rr, env := do(t, router, http.MethodPost, "/api/v1/carts", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var created shop.View
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rr, env = do(t, router, http.MethodPost, "/api/v1/carts/"+created.SessionID+"/items", `{"productId":"p1","qty":2}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)
}
