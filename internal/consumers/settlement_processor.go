package consumers

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-service/internal/services"
)

// SettlementProcessor executes queued work: reconciling pending settlements
// against the providers and flushing activity entries.
type SettlementProcessor struct {
	DB         *gorm.DB
	Settlement *services.SettlementService
	Activity   *services.ActivityService
	Log        *zap.Logger
}

func NewSettlementProcessor(db *gorm.DB, settlement *services.SettlementService, activity *services.ActivityService, log *zap.Logger) *SettlementProcessor {
	return &SettlementProcessor{
		DB:         db,
		Settlement: settlement,
		Activity:   activity,
		Log:        log,
	}
}

// ProcessReconcile resolves one pending settlement. Errors bubble up so
// asynq retries with backoff; a settlement finished by an earlier attempt is
// a no-op.
func (p *SettlementProcessor) ProcessReconcile(ctx context.Context, payload services.ReconcilePayload) error {
	if err := p.Settlement.Reconcile(ctx, payload.Reference); err != nil {
		p.Log.Warn("settlement reconcile attempt failed",
			zap.String("reference", payload.Reference), zap.Error(err))
		return err
	}
	return nil
}

func (p *SettlementProcessor) ProcessActivity(payload services.ActivityPayload) {
	p.Activity.Write(payload)
}
