package exchange

import (
	"context"
	"cbr-rate-converter/domain"
	"github.com/go-kit/log"
	"time"
)

// loggingService decorates an exchange.Service with logging
type loggingService struct {
	logger log.Logger
	next   Service
}

// NewLoggingService returns a new instance of a logging Service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) Convert(ctx context.Context, amount domain.Amount, from domain.Currency, to domain.Currency) (ex domain.Exchanged, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "convert",
			"amount", amount,
			"from", from,
			"to", to,
			"rate", ex.Rate,
			"converted_amount", ex.Amount,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Convert(ctx, amount, from, to)
}

func (s *loggingService) Currencies(ctx context.Context) (codes []domain.Currency, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "currencies",
			"count", len(codes),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Currencies(ctx)
}

func (s *loggingService) Quote(ctx context.Context, code domain.Currency) (entry domain.RateEntry, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "quote",
			"code", code,
			"nominal", entry.Nominal,
			"value", entry.Value,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Quote(ctx, code)
}
