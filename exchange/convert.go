package exchange

import (
	"cbr-rate-converter/domain"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kinds of conversion failure. Every ConversionError wraps exactly one of them.
var (
	ErrAmountNotFinite = errors.New("amount must be a finite number")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrUnknownSource   = errors.New("unknown source currency")
	ErrUnknownTarget   = errors.New("unknown target currency")
	ErrInvalidNominal  = errors.New("invalid nominal")
	ErrZeroRate        = errors.New("zero rate")
	ErrInvalidTable    = errors.New("invalid rate table")
	ErrResultOverflow  = errors.New("converted amount is too large")
)

// ConversionError is a caller input problem: the caller should re-prompt, not retry.
type ConversionError struct {
	Err    error
	Code   domain.Currency
	Amount domain.Amount
}

func (e *ConversionError) Error() string {
	switch e.Err {
	case ErrAmountNotFinite, ErrNegativeAmount, ErrResultOverflow:
		return fmt.Sprintf("%v: %v", e.Err, float64(e.Amount))
	case ErrInvalidTable:
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %v", e.Err, e.Code)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// NormalizeCode trims and upper-cases a user supplied currency code.
func NormalizeCode(code domain.Currency) domain.Currency {
	return domain.Currency(strings.ToUpper(strings.TrimSpace(string(code))))
}

// Convert converts amount of from into to, bridging through the pivot currency.
// The result is not rounded. Equal codes return amount unchanged without
// consulting the table.
func Convert(amount domain.Amount, from, to domain.Currency, table *domain.RateTable) (domain.Amount, error) {
	a := float64(amount)
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0, &ConversionError{Err: ErrAmountNotFinite, Amount: amount}
	}
	if a < 0 {
		return 0, &ConversionError{Err: ErrNegativeAmount, Amount: amount}
	}

	src := NormalizeCode(from)
	dst := NormalizeCode(to)
	if src == dst {
		return amount, nil
	}

	if table == nil {
		return 0, &ConversionError{Err: ErrInvalidTable}
	}

	srcPrice, err := unitPrice(table, src, ErrUnknownSource)
	if err != nil {
		return 0, err
	}
	dstPrice, err := unitPrice(table, dst, ErrUnknownTarget)
	if err != nil {
		return 0, err
	}
	if dstPrice == 0 {
		return 0, &ConversionError{Err: ErrZeroRate, Code: dst}
	}

	result := a * srcPrice / dstPrice
	if math.IsInf(result, 0) {
		return 0, &ConversionError{Err: ErrResultOverflow, Amount: amount}
	}
	return domain.Amount(result), nil
}

// CrossRate is the price of one unit of from expressed in to.
func CrossRate(from, to domain.Currency, table *domain.RateTable) (domain.Rate, error) {
	rate, err := Convert(1, from, to, table)
	return domain.Rate(rate), err
}

// SupportedCodes lists the codes of table in ascending order. A nil table or
// one without the pivot currency is rejected.
func SupportedCodes(table *domain.RateTable) ([]domain.Currency, error) {
	if table == nil || !table.Has(domain.Pivot) {
		return nil, &ConversionError{Err: ErrInvalidTable}
	}
	return table.Codes(), nil
}

// unitPrice pivot price of one unit of code; missing is returned when code is absent
func unitPrice(table *domain.RateTable, code domain.Currency, missing error) (float64, error) {
	entry, ok := table.Lookup(code)
	if !ok {
		return 0, &ConversionError{Err: missing, Code: code}
	}
	if entry.Nominal <= 0 {
		return 0, &ConversionError{Err: ErrInvalidNominal, Code: code}
	}
	return entry.Value / float64(entry.Nominal), nil
}
