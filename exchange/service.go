package exchange

import (
	"context"
	"cbr-rate-converter/cbr"
	"cbr-rate-converter/domain"
	"fmt"
)

// Service interface for converting from one currency to another
type Service interface {
	Convert(ctx context.Context, amount domain.Amount, from domain.Currency, to domain.Currency) (domain.Exchanged, error)
	Currencies(ctx context.Context) ([]domain.Currency, error)
	Quote(ctx context.Context, code domain.Currency) (domain.RateEntry, error)
}

// service converts with the table provided by a cbr.Service
type service struct {
	// ratesService to look up the rate table, usually a cache
	ratesService cbr.Service
}

// NewService constructs a valid Service
func NewService(s cbr.Service) Service {
	return &service{
		ratesService: s,
	}
}

// Convert computes a conversion from one currency to another with the current rate table.
// As a side-effect the cached rate table might be refreshed.
func (s *service) Convert(ctx context.Context, amount domain.Amount, from domain.Currency, to domain.Currency) (domain.Exchanged, error) {
	table, err := s.ratesService.Rates(ctx)
	if err != nil {
		return domain.Exchanged{}, fmt.Errorf("convert from [%v]: %w", from, err)
	}

	converted, err := Convert(amount, from, to, table)
	if err != nil {
		return domain.Exchanged{}, err
	}
	rate, err := CrossRate(from, to, table)
	if err != nil {
		return domain.Exchanged{}, err
	}

	fromEntry, _ := table.Lookup(NormalizeCode(from))
	toEntry, _ := table.Lookup(NormalizeCode(to))

	return domain.Exchanged{Rate: rate, Amount: converted, From: fromEntry, To: toEntry}, nil
}

// Currencies lists the currencies of the current rate table.
func (s *service) Currencies(ctx context.Context) ([]domain.Currency, error) {
	table, err := s.ratesService.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("currencies: %w", err)
	}
	return SupportedCodes(table)
}

// Quote returns the published entry for code. A missing code is reported as ErrUnknownSource.
func (s *service) Quote(ctx context.Context, code domain.Currency) (domain.RateEntry, error) {
	table, err := s.ratesService.Rates(ctx)
	if err != nil {
		return domain.RateEntry{}, fmt.Errorf("quote [%v]: %w", code, err)
	}
	code = NormalizeCode(code)
	entry, ok := table.Lookup(code)
	if !ok {
		return domain.RateEntry{}, &ConversionError{Err: ErrUnknownSource, Code: code}
	}
	return entry, nil
}
