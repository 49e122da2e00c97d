package cbr

import (
	"context"
	"cbr-rate-converter/domain"
	"github.com/go-kit/log"
	"time"
)

// loggingService decorates a cbr.Service with logging
type loggingService struct {
	next   Service
	logger log.Logger
}

// NewLoggingService return a new logging service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) Rates(ctx context.Context) (table *domain.RateTable, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "rates",
			"entries", table.Len(),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Rates(ctx)
}
