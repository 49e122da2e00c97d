package http

import (
	"context"
	"cbr-rate-converter/cbr"
	"cbr-rate-converter/domain"
	"cbr-rate-converter/exchange"
	"encoding/json"
	"errors"
	"github.com/shopspring/decimal"
	"io"
	"net/http"
	"time"
)

// RateCache is the cached rate table behind the service, see cbr.CachingService
type RateCache interface {
	RatesAt(ctx context.Context) (*domain.RateTable, time.Time, error)
	Invalidate()
}

// Server dependencies for HTTP Server functions
type Server struct {
	Service exchange.Service
	// Cache enables /api/rates and /api/refresh when set
	Cache RateCache
	// Metrics is served on /metrics when set
	Metrics http.Handler
	router  http.ServeMux
}

func NewServer(s exchange.Service, cache RateCache, metrics http.Handler) *Server {
	server := &Server{
		Service: s,
		Cache:   cache,
		Metrics: metrics,
		router:  http.ServeMux{},
	}
	server.routes()
	return server
}

func (s *Server) routes() {
	s.router.Handle("/api/convert", s.convert())
	s.router.Handle("/api/currencies", s.currencies())
	if s.Cache != nil {
		s.router.Handle("/api/rates", s.rates())
		s.router.Handle("/api/refresh", s.refresh())
	}
	if s.Metrics != nil {
		s.router.Handle("/metrics", s.Metrics)
	}
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

// convert produces HTTP handler for currency conversions
func (s *Server) convert() http.HandlerFunc {

	// request for unmarshalling JSON requests posted by clients
	type request struct {
		FromCurrency domain.Currency
		ToCurrency   domain.Currency
		Amount       domain.Amount
	}

	// response for marshalling JSON responses to return to clients
	type response struct {
		Exchange  domain.Rate   `json:"exchange"`
		Amount    domain.Amount `json:"amount"`
		Original  domain.Amount `json:"original"`
		Formatted string        `json:"formatted"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		if r.Method != http.MethodPost {
			writeError(rw, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		bytes, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(rw, http.StatusBadRequest, "invalid request")
			return
		}

		var request request
		err = json.Unmarshal(bytes, &request)
		if err != nil {
			writeError(rw, http.StatusBadRequest, "invalid json")
			return
		}

		result, err := s.Service.Convert(r.Context(), request.Amount, request.FromCurrency, request.ToCurrency)
		if err != nil {
			writeServiceError(rw, err)
			return
		}

		writeJSON(rw, http.StatusOK, response{
			Exchange:  result.Rate,
			Amount:    result.Amount,
			Original:  request.Amount,
			Formatted: FormatAmount(result.Amount, 4),
		})
	}
}

// currencies produces HTTP handler listing the supported currency codes
func (s *Server) currencies() http.HandlerFunc {
	type response struct {
		Currencies []domain.Currency `json:"currencies"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(rw, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		codes, err := s.Service.Currencies(r.Context())
		if err != nil {
			writeServiceError(rw, err)
			return
		}
		writeJSON(rw, http.StatusOK, response{Currencies: codes})
	}
}

// rates produces HTTP handler dumping the cached rate table
func (s *Server) rates() http.HandlerFunc {
	type rate struct {
		Code    domain.Currency `json:"code"`
		Nominal int             `json:"nominal"`
		Name    string          `json:"name"`
		Value   float64         `json:"value"`
	}

	type response struct {
		FetchedAt time.Time `json:"fetchedAt"`
		Rates     []rate    `json:"rates"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(rw, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		table, fetchedAt, err := s.Cache.RatesAt(r.Context())
		if err != nil {
			writeServiceError(rw, err)
			return
		}

		resp := response{FetchedAt: fetchedAt, Rates: make([]rate, 0, table.Len())}
		for _, e := range table.Entries() {
			resp.Rates = append(resp.Rates, rate{Code: e.Code, Nominal: e.Nominal, Name: e.Name, Value: e.Value})
		}
		writeJSON(rw, http.StatusOK, resp)
	}
}

// refresh produces HTTP handler dropping the cached rate table
func (s *Server) refresh() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(rw, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.Cache.Invalidate()
		rw.WriteHeader(http.StatusNoContent)
	}
}

// FormatAmount rounds amount half away from zero to places decimals for display.
func FormatAmount(amount domain.Amount, places int32) string {
	return decimal.NewFromFloat(float64(amount)).StringFixed(places)
}

// writeServiceError maps a service error onto an HTTP status:
// bad input is the client's fault, an unusable upstream page is a bad gateway.
func writeServiceError(rw http.ResponseWriter, err error) {
	var convErr *exchange.ConversionError
	var fetchErr *cbr.FetchError
	var parseErr *cbr.ParseError
	switch {
	case errors.As(err, &convErr):
		writeError(rw, http.StatusBadRequest, convErr.Error())
	case errors.As(err, &fetchErr), errors.As(err, &parseErr):
		writeError(rw, http.StatusBadGateway, "rates unavailable: "+err.Error())
	default:
		writeError(rw, http.StatusInternalServerError, "failed conversion")
	}
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, struct {
		Error string `json:"error"`
	}{msg})
}

func writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
