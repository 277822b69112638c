package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/meteo-etl-service/internal/domain"
)

// ForecastTransformer implements Transformer with domain.Reshape.
type ForecastTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a ForecastTransformer.
func NewTransformer(logger *slog.Logger) *ForecastTransformer {
	return &ForecastTransformer{logger: logger}
}

func (t *ForecastTransformer) Transform(_ context.Context, resp domain.ForecastResponse) (domain.ForecastTable, error) {
	table, err := domain.Reshape(resp)
	if err != nil {
		return domain.ForecastTable{}, err
	}
	t.logger.Debug("forecast reshaped", "rows", table.Len())
	return table, nil
}
