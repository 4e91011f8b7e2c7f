package ingest

import (
	"context"
	"sort"
	"sync"

	"github.com/simaogato/portfolio-ledger/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Failure records an event the batch could not ingest
type Failure struct {
	Index   int // Position in the submitted batch
	OwnerID int64
	Err     error
}

// BatchResult holds per-event outcomes in submission order.
// Results[i] is nil when event i failed; see Failures.
type BatchResult struct {
	Results    []*Result
	Failures   []Failure
	Ingested   int
	Duplicates int
}

// ImportBatch ingests events one owner at a time in submission order,
// processing up to Workers owners in parallel.
// A failing event is recorded and does not stop the rest of the batch.
func (s *Service) ImportBatch(ctx context.Context, events []*domain.Event) (*BatchResult, error) {
	batch := &BatchResult{Results: make([]*Result, len(events))}

	owners := make([]int64, 0)
	byOwner := make(map[int64][]int)
	for i, e := range events {
		if e == nil {
			batch.Failures = append(batch.Failures, Failure{Index: i, Err: domain.ErrInvalidEvent})
			continue
		}
		if _, seen := byOwner[e.OwnerID]; !seen {
			owners = append(owners, e.OwnerID)
		}
		byOwner[e.OwnerID] = append(byOwner[e.OwnerID], i)
	}

	var mu sync.Mutex
	record := func(i int, ownerID int64, result *Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			batch.Failures = append(batch.Failures, Failure{Index: i, OwnerID: ownerID, Err: err})
			return
		}
		batch.Results[i] = result
		if result.Duplicate {
			batch.Duplicates++
		} else {
			batch.Ingested++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Workers)

	for _, ownerID := range owners {
		ownerID, indexes := ownerID, byOwner[ownerID]
		g.Go(func() error {
			for _, i := range indexes {
				if err := gctx.Err(); err != nil {
					return err
				}
				result, err := s.Ingest(gctx, events[i])
				record(i, ownerID, result, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batch, err
	}

	sort.Slice(batch.Failures, func(i, j int) bool { return batch.Failures[i].Index < batch.Failures[j].Index })
	s.log.Info().
		Int("events", len(events)).
		Int("owners", len(owners)).
		Int("ingested", batch.Ingested).
		Int("duplicates", batch.Duplicates).
		Int("failed", len(batch.Failures)).
		Msg("Batch import finished")

	return batch, nil
}
