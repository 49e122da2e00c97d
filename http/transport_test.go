package http

import (
	"context"
	"cbr-rate-converter/cbr"
	"cbr-rate-converter/domain"
	"cbr-rate-converter/exchange"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type mock struct {
	t      *testing.T
	amount domain.Amount
	from   domain.Currency
	to     domain.Currency
	err    error
}

func (m *mock) Convert(_ context.Context, amount domain.Amount, from domain.Currency, to domain.Currency) (domain.Exchanged, error) {
	assert.Equal(m.t, m.amount, amount, "amount")
	assert.Equal(m.t, m.from, from, "from")
	assert.Equal(m.t, m.to, to, "to")
	if m.err != nil {
		return domain.Exchanged{}, m.err
	}
	return domain.Exchanged{Rate: 2.0, Amount: 6.0}, nil
}

func (m *mock) Currencies(_ context.Context) ([]domain.Currency, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Currency{"RUB", "USD"}, nil
}

func (m *mock) Quote(_ context.Context, code domain.Currency) (domain.RateEntry, error) {
	return domain.RateEntry{}, m.err
}

type cache struct {
	table       *domain.RateTable
	fetchedAt   time.Time
	invalidated bool
}

func (c *cache) RatesAt(_ context.Context) (*domain.RateTable, time.Time, error) {
	return c.table, c.fetchedAt, nil
}

func (c *cache) Invalidate() { c.invalidated = true }

func TestServer_ServeHTTP(t *testing.T) {
	es := mock{
		t:      t,
		amount: 3,
		from:   "GBP",
		to:     "FOO",
	}

	server := NewServer(&es, nil, nil)

	w := httptest.NewRecorder()
	msg := `{"fromCurrency":"GBP", "toCurrency":"FOO","amount":3.0}`
	r := httptest.NewRequest("POST", "/api/convert", strings.NewReader(msg))

	server.ServeHTTP(w, r)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, `{"exchange":2,"amount":6,"original":3,"formatted":"6.0000"}`, strings.TrimSpace(w.Body.String()))
}

func TestServer_ConvertErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		err    error
		status int
		want   string
	}{
		{"invalid json", "POST", `{`, nil, 400, `{"error":"invalid json"}`},
		{"wrong method", "GET", ``, nil, 405, `{"error":"method not allowed"}`},
		{"conversion error", "POST", `{"fromCurrency":"USD","toCurrency":"XYZ","amount":1}`,
			&exchange.ConversionError{Err: exchange.ErrUnknownTarget, Code: "XYZ"}, 400, `{"error":"unknown target currency: XYZ"}`},
		{"fetch error", "POST", `{"fromCurrency":"USD","toCurrency":"XYZ","amount":1}`,
			&cbr.FetchError{URL: "https://cbr.example/", StatusCode: 503}, 502, `{"error":"rates unavailable: fetch https://cbr.example/: unexpected status 503 Service Unavailable"}`},
		{"other error", "POST", `{"fromCurrency":"USD","toCurrency":"XYZ","amount":1}`,
			errors.New("boom"), 500, `{"error":"failed conversion"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			es := mock{t: t, amount: 1, from: "USD", to: "XYZ", err: tt.err}
			server := NewServer(&es, nil, nil)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest(tt.method, "/api/convert", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.want, strings.TrimSpace(w.Body.String()))
		})
	}
}

func TestServer_Currencies(t *testing.T) {
	server := NewServer(&mock{t: t}, nil, nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/currencies", nil))

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, `{"currencies":["RUB","USD"]}`, strings.TrimSpace(w.Body.String()))
}

func TestServer_RatesAndRefresh(t *testing.T) {
	table, err := domain.NewRateTable([]domain.RateEntry{
		{Code: "USD", Nominal: 1, Name: "Доллар США", Value: 90.5},
		{Code: "RUB", Nominal: 1, Name: domain.PivotName, Value: 1},
	})
	require.NoError(t, err)
	c := &cache{table: table, fetchedAt: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)}

	server := NewServer(&mock{t: t}, c, nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/rates", nil))
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"fetchedAt":"2024-02-01T12:00:00Z","rates":[
		{"code":"RUB","nominal":1,"name":"Российский рубль","value":1},
		{"code":"USD","nominal":1,"name":"Доллар США","value":90.5}]}`, w.Body.String())

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("POST", "/api/refresh", nil))
	assert.Equal(t, 204, w.Code)
	assert.True(t, c.invalidated)
}

func TestServer_OptionalRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("# metrics"))
	})

	server := NewServer(&mock{t: t}, nil, metrics)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("POST", "/api/refresh", nil))
	assert.Equal(t, 404, w.Code)

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "# metrics", w.Body.String())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "9000.0000", FormatAmount(9000, 4))
	assert.Equal(t, "0.33", FormatAmount(1.0/3.0, 2))
	assert.Equal(t, "2.50", FormatAmount(2.499999, 2))
}
