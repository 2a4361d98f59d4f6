package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fxledger/internal/domain"
	"fxledger/internal/rate"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct{ mock.Mock }

func (m *MockService) Ingest(ctx context.Context, execID string, day rate.DailyRates) (rate.IngestResult, error) {
	args := m.Called(ctx, execID, day)
	res, _ := args.Get(0).(rate.IngestResult)
	return res, args.Error(1)
}

func (m *MockService) Latest(ctx context.Context, tenantID string, codes []string) ([]domain.RateObservation, error) {
	args := m.Called(ctx, tenantID, codes)
	obs, _ := args.Get(0).([]domain.RateObservation)
	return obs, args.Error(1)
}

func (m *MockService) ForDate(ctx context.Context, tenantID string, date time.Time, codes []string) ([]domain.RateObservation, error) {
	args := m.Called(ctx, tenantID, date, codes)
	obs, _ := args.Get(0).([]domain.RateObservation)
	return obs, args.Error(1)
}

type errorJSON struct {
	Error string `json:"error"`
}

func newHandler(supported ...string) (*Handler, *MockService) {
	svc := new(MockService)
	return NewRateHandler(rate.NewValidator(supported), svc), svc
}

func withParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var ej errorJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ej))
	return ej.Error
}

// --- IngestObservations ---

func TestHandler_IngestObservations_Success(t *testing.T) {
	h, svc := newHandler()

	svc.On("Ingest", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(d rate.DailyRates) bool {
		return d.AsOfDate.Format(domain.DateLayout) == "2025-11-07" &&
			len(d.Rates) == 2 &&
			d.Rates["USD"].Equal(decimal.RequireFromString("100.50")) &&
			d.Rates["EUR"].Equal(decimal.RequireFromString("108.3")) &&
			len(d.TenantIDs) == 1
	})).Return(rate.IngestResult{Tenants: 1, New: 2}, nil).Once()

	body := `{"as_of_date":"2025-11-07","rates":[{"currency_code":"usd","rate":"100.50"},{"currency_code":"EUR","rate":108.3}],"tenant_ids":["t1"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rates/observations", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.IngestObservations(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var res map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "2025-11-07", res["as_of_date"])
	require.EqualValues(t, 2, res["new"])
	require.NotEmpty(t, res["exec_id"])
	svc.AssertExpectations(t)
}

func TestHandler_IngestObservations_BadRequests(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "invalid json", body: `{`, wantMsg: "invalid request body"},
		{name: "unknown field", body: `{"as_of_date":"2025-11-07","foo":1}`, wantMsg: "invalid request body"},
		{name: "bad date", body: `{"as_of_date":"07.11.2025","rates":[{"currency_code":"USD","rate":"1"}]}`, wantMsg: "as_of_date must be YYYY-MM-DD"},
		{name: "no rates", body: `{"as_of_date":"2025-11-07","rates":[]}`, wantMsg: rate.ErrNoRates.Error()},
		{name: "bad code", body: `{"as_of_date":"2025-11-07","rates":[{"currency_code":"US","rate":"1"}]}`, wantMsg: "US: " + rate.ErrCodeMalformed.Error()},
		{name: "duplicate", body: `{"as_of_date":"2025-11-07","rates":[{"currency_code":"USD","rate":"1"},{"currency_code":"usd","rate":"2"}]}`, wantMsg: "USD: " + rate.ErrDuplicateCode.Error()},
		{name: "negative rate", body: `{"as_of_date":"2025-11-07","rates":[{"currency_code":"USD","rate":"-1"}]}`, wantMsg: "USD: " + rate.ErrRateNotPositive.Error()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, svc := newHandler()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/rates/observations", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			h.IngestObservations(rr, req)

			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Equal(t, tc.wantMsg, decodeError(t, rr))
			svc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_IngestObservations_BodyTooLarge(t *testing.T) {
	h, svc := newHandler()
	big := bytes.Repeat([]byte("a"), maxIngestBody+10)
	body := `{"as_of_date":"` + string(big) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rates/observations", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.IngestObservations(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_IngestObservations_UnsupportedCode(t *testing.T) {
	h, _ := newHandler("USD")
	body := `{"as_of_date":"2025-11-07","rates":[{"currency_code":"GBP","rate":"1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rates/observations", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.IngestObservations(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "GBP: "+rate.ErrCodeUnsupported.Error(), decodeError(t, rr))
}

func TestHandler_IngestObservations_TenantNotFound(t *testing.T) {
	h, svc := newHandler()
	svc.On("Ingest", mock.Anything, mock.Anything, mock.Anything).Return(rate.IngestResult{}, domain.ErrTenantNotFound).Once()

	body := `{"as_of_date":"2025-11-07","rates":[{"currency_code":"USD","rate":"1"}],"tenant_ids":["ghost"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rates/observations", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.IngestObservations(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_IngestObservations_InternalError(t *testing.T) {
	h, svc := newHandler()
	svc.On("Ingest", mock.Anything, mock.Anything, mock.Anything).Return(rate.IngestResult{}, errors.New("db down")).Once()

	body := `{"as_of_date":"2025-11-07","rates":[{"currency_code":"USD","rate":"1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rates/observations", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.IngestObservations(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "failed to ingest rates", decodeError(t, rr))
}

// --- GetLatest / GetForDate ---

func TestHandler_GetLatest_Success(t *testing.T) {
	h, svc := newHandler()
	observedAt := time.Date(2025, 11, 7, 8, 0, 0, 0, time.UTC)
	svc.On("Latest", mock.Anything, "t1", []string{"EUR", "USD"}).Return([]domain.RateObservation{
		{TenantID: "t1", CurrencyCode: "EUR", AsOfDate: time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC), Rate: decimal.RequireFromString("108.30"), ObservedAt: observedAt},
		{TenantID: "t1", CurrencyCode: "USD", AsOfDate: time.Date(2025, 11, 6, 0, 0, 0, 0, time.UTC), Rate: decimal.RequireFromString("100.5"), ObservedAt: observedAt},
	}, nil).Once()

	req := withParams(httptest.NewRequest(http.MethodGet, "/api/v1/tenants/t1/rates/latest?currency=usd,EUR", nil), "tenantID", "t1")
	rr := httptest.NewRecorder()

	h.GetLatest(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var res struct {
		TenantID string `json:"tenant_id"`
		Rates    []struct {
			CurrencyCode string `json:"currency_code"`
			AsOfDate     string `json:"as_of_date"`
			Rate         string `json:"rate"`
		} `json:"rates"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "t1", res.TenantID)
	require.Len(t, res.Rates, 2)
	require.Equal(t, "EUR", res.Rates[0].CurrencyCode)
	require.Equal(t, "108.3", res.Rates[0].Rate)
	require.Equal(t, "2025-11-06", res.Rates[1].AsOfDate)
}

func TestHandler_GetLatest_BadFilter(t *testing.T) {
	h, svc := newHandler()
	req := withParams(httptest.NewRequest(http.MethodGet, "/api/v1/tenants/t1/rates/latest?currency=EURO", nil), "tenantID", "t1")
	rr := httptest.NewRecorder()

	h.GetLatest(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Latest", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_GetLatest_TenantNotFound(t *testing.T) {
	h, svc := newHandler()
	svc.On("Latest", mock.Anything, "ghost", []string(nil)).Return(nil, domain.ErrTenantNotFound).Once()

	req := withParams(httptest.NewRequest(http.MethodGet, "/api/v1/tenants/ghost/rates/latest", nil), "tenantID", "ghost")
	rr := httptest.NewRecorder()

	h.GetLatest(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "tenant not found", decodeError(t, rr))
}

func TestHandler_GetForDate_Success(t *testing.T) {
	h, svc := newHandler()
	date := time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC)
	svc.On("ForDate", mock.Anything, "t1", date, []string(nil)).Return([]domain.RateObservation{}, nil).Once()

	req := withParams(httptest.NewRequest(http.MethodGet, "/api/v1/tenants/t1/rates/2025-11-07", nil), "tenantID", "t1", "date", "2025-11-07")
	rr := httptest.NewRecorder()

	h.GetForDate(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"tenant_id":"t1","rates":[]}`, rr.Body.String())
}

func TestHandler_GetForDate_BadDate(t *testing.T) {
	h, svc := newHandler()
	req := withParams(httptest.NewRequest(http.MethodGet, "/api/v1/tenants/t1/rates/yesterday", nil), "tenantID", "t1", "date", "yesterday")
	rr := httptest.NewRecorder()

	h.GetForDate(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "date must be YYYY-MM-DD", decodeError(t, rr))
	svc.AssertNotCalled(t, "ForDate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_GetForDate_InternalError(t *testing.T) {
	h, svc := newHandler()
	svc.On("ForDate", mock.Anything, "t1", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

	req := withParams(httptest.NewRequest(http.MethodGet, "/api/v1/tenants/t1/rates/2025-11-07", nil), "tenantID", "t1", "date", "2025-11-07")
	rr := httptest.NewRecorder()

	h.GetForDate(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

// --- GetSupportedCodes ---

func TestHandler_GetSupportedCodes(t *testing.T) {
	h, _ := newHandler("USD", "EUR")
	rr := httptest.NewRecorder()

	h.GetSupportedCodes(rr, httptest.NewRequest(http.MethodGet, "/api/v1/rates/supported-currencies", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"codes":["EUR","USD"]}`, rr.Body.String())
}
