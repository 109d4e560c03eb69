package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"loft/internal/domain/catalog"
	"loft/internal/domain/pricing"
	"loft/internal/domain/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubCatalog satisfies catalog.Store via embedding; only Snapshot is
// implemented because the quote endpoint touches nothing else.
type stubCatalog struct {
	catalog.Store
	products []pricing.Product
	rates    pricing.RateCard
}

func (s stubCatalog) Snapshot(ctx context.Context) ([]pricing.Product, pricing.RateCard, error) {
	return s.products, s.rates, nil
}

func newTestApplication(t *testing.T) *application {
	t.Helper()

	return &application{
		logger: zap.NewNop().Sugar(),
		store: &storage.Container{
			Catalog: stubCatalog{
				rates: pricing.RateCard{
					MinimumTotal:            1000,
					EveningPerGuest:         150,
					AfternoonWithKaraoke:    2500,
					AfternoonWithoutKaraoke: 2000,
					ExtraHourPerGuest:       30,
					PhotographerFlat:        800,
				},
			},
		},
	}
}

func TestQuoteHandler(t *testing.T) {
	app := newTestApplication(t)
	mux := app.mount()

	body := `{"event_date":"2026-10-10","slot":"evening","guests":20,"extra_hours":0}`
	req := httptest.NewRequest(http.MethodPost, "/v1/quote", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Data pricing.Quote `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.Equal(t, 3000, envelope.Data.Total)
	assert.False(t, envelope.Data.FloorApplied)
}

func TestQuoteHandler_MinimumFloor(t *testing.T) {
	app := newTestApplication(t)
	mux := app.mount()

	// 5 evening guests at 150 is 750, below the 1000 floor
	body := `{"event_date":"2026-10-10","slot":"evening","guests":5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/quote", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Data pricing.Quote `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.Equal(t, 1000, envelope.Data.Total)
	assert.True(t, envelope.Data.FloorApplied)
}

func TestQuoteHandler_RejectsBadSlot(t *testing.T) {
	app := newTestApplication(t)
	mux := app.mount()

	body := `{"event_date":"2026-10-10","slot":"midnight","guests":10}`
	req := httptest.NewRequest(http.MethodPost, "/v1/quote", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQuoteHandler_RejectsUnknownFields(t *testing.T) {
	app := newTestApplication(t)
	mux := app.mount()

	body := `{"event_date":"2026-10-10","slot":"evening","guests":10,"discount":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/quote", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
