package market

import (
	"context"

	"go.uber.org/zap"
)

// Archive persists daily closes.
type Archive interface {
	SaveBars(ctx context.Context, symbol string, bars []Bar) error
}

// ArchivingProvider writes every successful history response to an Archive.
// Archive failures are logged and never affect the response.
type ArchivingProvider struct {
	Provider
	archive Archive
	logger  *zap.Logger
}

func NewArchivingProvider(p Provider, archive Archive, logger *zap.Logger) *ArchivingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchivingProvider{Provider: p, archive: archive, logger: logger}
}

func (p *ArchivingProvider) GetHistory(ctx context.Context, symbol string, period Period) History {
	h := p.Provider.GetHistory(ctx, symbol, period)
	if !h.OK() {
		return h
	}
	if err := p.archive.SaveBars(ctx, symbol, h.Bars); err != nil {
		p.logger.Warn("archive prices failed",
			zap.String("symbol", symbol),
			zap.Int("bars", len(h.Bars)),
			zap.Error(err))
	}
	return h
}
