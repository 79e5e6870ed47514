package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"storefront-service/internal/consumers"
	"storefront-service/internal/services"
)

type Worker struct {
	Processor *consumers.SettlementProcessor
}

func NewWorker(processor *consumers.SettlementProcessor) *Worker {
	return &Worker{Processor: processor}
}

func (w *Worker) HandleSettlementReconcile(ctx context.Context, t *asynq.Task) error {
	var p services.ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	return w.Processor.ProcessReconcile(ctx, p)
}

func (w *Worker) HandleActivityRecord(ctx context.Context, t *asynq.Task) error {
	var p services.ActivityPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	w.Processor.ProcessActivity(p)
	return nil
}

func StartWorker(redisOpt asynq.RedisClientOpt, processor *consumers.SettlementProcessor) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	worker := NewWorker(processor)
	mux := asynq.NewServeMux()

	mux.HandleFunc(services.TypeSettlementReconcile, worker.HandleSettlementReconcile)
	mux.HandleFunc(services.TypeActivityRecord, worker.HandleActivityRecord)

	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
