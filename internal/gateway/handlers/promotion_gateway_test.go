package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"nusapos/internal/database/models"
	"nusapos/internal/services/promotion"
	"nusapos/internal/store/memory"
)

func newDiscountRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewSeeded()
	catalog := promotion.NewCatalog(repo, nil)
	handler := NewPromotionHTTPHandler(catalog, promotion.NewResolver(catalog), decimal.NewFromInt(10))

	r := gin.New()
	r.POST("/promotions/calculate-discount", handler.CalculateDiscount)
	return r, repo
}

func postDiscount(t *testing.T, r *gin.Engine, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/promotions/calculate-discount", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type discountPayload struct {
	Success bool `json:"success"`
	Data    struct {
		DiscountAmount decimal.Decimal `json:"discount_amount"`
		FinalPrice     decimal.Decimal `json:"final_price"`
		TaxAmount      decimal.Decimal `json:"tax_amount"`
		Total          decimal.Decimal `json:"total"`
	} `json:"data"`
}

func decodeDiscount(t *testing.T, w *httptest.ResponseRecorder) discountPayload {
	t.Helper()
	var out discountPayload
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func seedMorningBand(t *testing.T, repo *memory.Store) {
	t.Helper()
	startBand, endBand := "09:00", "10:30"
	promo := models.Promotion{
		Name:          "Promo Pagi 25%",
		Type:          models.PromotionHappyHour,
		DiscountValue: decimal.NewFromInt(25),
		StartDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC),
		StartTime:     &startBand,
		EndTime:       &endBand,
		IsActive:      true,
	}
	if err := repo.CreatePromotion(context.Background(), &promo); err != nil {
		t.Fatalf("seed promotion: %v", err)
	}
}

func TestCalculateDiscountAtStatedTime(t *testing.T) {
	r, repo := newDiscountRouter(t)
	seedMorningBand(t, repo)

	w := postDiscount(t, r, map[string]any{
		"product_id":   1,
		"quantity":     1,
		"unit_price":   "100",
		"branch_id":    1,
		"current_time": "2026-03-02T09:30:00Z",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	got := decodeDiscount(t, w)
	if !got.Data.DiscountAmount.Equal(decimal.NewFromInt(25)) {
		t.Errorf("discount = %s, want 25", got.Data.DiscountAmount)
	}
	if !got.Data.FinalPrice.Equal(decimal.NewFromInt(75)) {
		t.Errorf("final price = %s, want 75", got.Data.FinalPrice)
	}
	if !got.Data.TaxAmount.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("tax = %s, want 7.5", got.Data.TaxAmount)
	}
	if !got.Data.Total.Equal(decimal.RequireFromString("82.5")) {
		t.Errorf("total = %s, want 82.5", got.Data.Total)
	}
}

func TestCalculateDiscountOutsideBandAtStatedTime(t *testing.T) {
	r, repo := newDiscountRouter(t)
	seedMorningBand(t, repo)

	// Same day, but noon falls outside the 09:00-10:30 band.
	w := postDiscount(t, r, map[string]any{
		"product_id":   1,
		"quantity":     1,
		"unit_price":   "100",
		"branch_id":    1,
		"current_time": "2026-03-02T12:00:00Z",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	got := decodeDiscount(t, w)
	if !got.Data.DiscountAmount.IsZero() {
		t.Errorf("discount = %s, want 0", got.Data.DiscountAmount)
	}
	if !got.Data.Total.Equal(decimal.NewFromInt(110)) {
		t.Errorf("total = %s, want 110", got.Data.Total)
	}
}

func TestCalculateDiscountDefaultsToNow(t *testing.T) {
	r, repo := newDiscountRouter(t)
	promo := models.Promotion{
		Name:          "Diskon 20%",
		Type:          models.PromotionPercentage,
		DiscountValue: decimal.NewFromInt(20),
		StartDate:     time.Now().Add(-24 * time.Hour),
		EndDate:       time.Now().Add(24 * time.Hour),
		IsActive:      true,
	}
	if err := repo.CreatePromotion(context.Background(), &promo); err != nil {
		t.Fatalf("seed promotion: %v", err)
	}

	w := postDiscount(t, r, map[string]any{
		"product_id": 1,
		"quantity":   1,
		"unit_price": "100",
		"branch_id":  1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	got := decodeDiscount(t, w)
	if !got.Data.DiscountAmount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("discount = %s, want 20", got.Data.DiscountAmount)
	}
}

func TestCalculateDiscountRejectsMalformedTime(t *testing.T) {
	r, _ := newDiscountRouter(t)

	w := postDiscount(t, r, map[string]any{
		"product_id":   1,
		"quantity":     1,
		"unit_price":   "100",
		"branch_id":    1,
		"current_time": "next tuesday",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
