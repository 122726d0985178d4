package learning

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"engagement-engine/internal/models"
)

// PersistenceError aborts a batch. Unprocessed lists the post ids of every record that
// was not processed, including the one whose persistence failed.
type PersistenceError struct {
	Unprocessed []string
	Err         error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("batch aborted with %d unprocessed records: %v", len(e.Unprocessed), e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ProcessBatch processes records on a bounded worker pool. Records of one creator run in
// submission order on a single worker; distinct creators run in parallel. Cancelling ctx
// skips records that have not started; records in progress complete. Reports are
// returned in submission order.
//
// The error is a *PersistenceError when the sink failed, or ctx.Err() when the batch
// was cancelled. The result is populated in both cases.
func (o *Orchestrator) ProcessBatch(ctx context.Context, records []models.InteractionRecord) (*models.BatchResult, error) {
	result := &models.BatchResult{Reports: make([]*models.LearningReport, len(records))}
	unprocessed := make([]bool, len(records))

	order, groups := groupByCreator(records)

	workers := o.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, creatorID := range order {
		indices := groups[creatorID]
		g.Go(func() error {
			for _, i := range indices {
				report, err := o.Process(gctx, records[i])
				result.Reports[i] = report
				if err == nil {
					continue
				}
				unprocessed[i] = true
				if errors.Is(err, ErrPersistenceUnavailable) {
					return err
				}
			}
			return nil
		})
	}
	waitErr := g.Wait()

	for i, report := range result.Reports {
		if report == nil {
			// never started: its creator's worker stopped early
			result.UnprocessedIDs = append(result.UnprocessedIDs, records[i].PostID)
			continue
		}
		if unprocessed[i] {
			result.UnprocessedIDs = append(result.UnprocessedIDs, records[i].PostID)
		}
		if report.Completed() {
			result.Processed++
		} else {
			result.Failed++
		}
	}

	switch {
	case waitErr != nil:
		o.observeBatch("persistence_error")
		o.logger.Error("Batch aborted, persistence unavailable",
			zap.Int("unprocessed", len(result.UnprocessedIDs)),
			zap.Error(waitErr))
		return result, &PersistenceError{Unprocessed: result.UnprocessedIDs, Err: waitErr}
	case ctx.Err() != nil:
		o.observeBatch("cancelled")
		return result, ctx.Err()
	}

	o.observeBatch("completed")
	o.logger.Info("Batch processed",
		zap.Int("records", len(records)),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (o *Orchestrator) observeBatch(outcome string) {
	if o.metrics != nil {
		o.metrics.ObserveBatch(outcome)
	}
}

// groupByCreator returns creator ids in order of first appearance and, per creator, the
// indices of its records in submission order.
func groupByCreator(records []models.InteractionRecord) ([]string, map[string][]int) {
	var order []string
	groups := make(map[string][]int)
	for i, r := range records {
		if _, ok := groups[r.CreatorID]; !ok {
			order = append(order, r.CreatorID)
		}
		groups[r.CreatorID] = append(groups[r.CreatorID], i)
	}
	return order, groups
}
