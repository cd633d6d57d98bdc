package coupon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/common"
	"github.com/noah-isme/toko-cart/internal/coupon"
	"github.com/noah-isme/toko-cart/internal/events"
)

type recordingClearer struct {
	codes []string
}

func (r *recordingClearer) ClearCoupon(_ context.Context, code string) error {
	r.codes = append(r.codes, code)
	return nil
}

func newService(t *testing.T) (*coupon.Service, *recordingClearer, *events.MemoryStore) {
	t.Helper()
	store := events.NewMemoryStore()
	clearer := &recordingClearer{}
	svc, err := coupon.NewService(coupon.ServiceConfig{
		Repo:      coupon.NewMemoryRepository(coupon.InitialCoupons()...),
		Events:    &events.Bus{Store: store},
		Selection: clearer,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc, clearer, store
}

func TestServiceCreate(t *testing.T) {
	svc, _, store := newService(t)
	ctx := context.Background()

	c, res, err := svc.Create(ctx, coupon.Coupon{Name: " 20% 할인 ", Code: " PERCENT20 ", DiscountType: coupon.DiscountPercentage, DiscountValue: 20})
	require.NoError(t, err)
	require.Equal(t, "PERCENT20", c.Code)
	require.Equal(t, "쿠폰이 추가되었습니다.", res.Message)

	_, res, err = svc.Create(ctx, coupon.Coupon{Name: "dup", Code: "AMOUNT5000", DiscountType: coupon.DiscountAmount, DiscountValue: 1})
	require.ErrorIs(t, err, coupon.ErrDuplicateCouponCode)
	require.Equal(t, coupon.CodeDuplicateCouponCode, res.Code)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Len(t, store.Events(), 1)
	require.Equal(t, events.TopicCouponCreated, store.Events()[0].Topic)
}

func TestServiceDeleteClearsSelection(t *testing.T) {
	svc, clearer, store := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "PERCENT10"))
	require.Equal(t, []string{"PERCENT10"}, clearer.codes)
	require.Equal(t, events.TopicCouponDeleted, store.Events()[0].Topic)

	err := svc.Delete(ctx, "PERCENT10")
	require.ErrorIs(t, err, coupon.ErrNotFound)
	require.Len(t, clearer.codes, 1)
}

func TestCouponHandlers(t *testing.T) {
	svc, _, _ := newService(t)
	h := coupon.NewHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/coupons", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []coupon.Coupon `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)

	rec = httptest.NewRecorder()
	body := `{"name":"dup","code":"PERCENT10","discountType":"percentage","discountValue":5}`
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/coupons", strings.NewReader(body)))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "이미 존재하는 쿠폰 코드입니다.")

	rec = httptest.NewRecorder()
	body = `{"name":"bad","code":"BAD","discountType":"bogo","discountValue":5}`
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/coupons", strings.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/coupons/AMOUNT5000", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("code", "AMOUNT5000")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "쿠폰이 삭제되었습니다.")
}
