package insight

import (
	"context"
	"fmt"

	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// disabledService stands in when no insight provider could be initialized.
// Every Analyze call fails, which the batch processor treats as "no insight"
// for that product, so runs still complete on the baseline model alone.
type disabledService struct {
	reason string
}

// NewDisabledService returns an insight service that always reports the
// given initialization failure
func NewDisabledService(reason string) interfaces.InsightService {
	return &disabledService{reason: reason}
}

func (s *disabledService) Analyze(ctx context.Context, productCtx interfaces.ProductContext) (*models.MarketInsight, error) {
	return nil, fmt.Errorf("insight provider disabled: %s", s.reason)
}

func (s *disabledService) HealthCheck(ctx context.Context) error {
	return fmt.Errorf("insight provider disabled: %s", s.reason)
}

func (s *disabledService) Provider() string {
	return "disabled"
}

func (s *disabledService) Close() error {
	return nil
}
