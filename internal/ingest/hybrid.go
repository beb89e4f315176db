package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"netsentry/internal/model"
)

// memberBackoff is how long a hybrid puller waits after a member source
// fails before asking it again.
const memberBackoff = time.Second

// Hybrid merges records from several sources into one stream. Each member
// is pulled on its own goroutine, so a slow member does not stall the rest,
// and a drained member leaves the others running. The hybrid itself drains
// once every member has.
type Hybrid struct {
	members []model.RecordSource
	merged  chan model.Record
	cancel  context.CancelFunc

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewHybrid starts pulling from every member. The members are owned by the
// hybrid from here on; closing it closes them.
func NewHybrid(members ...model.RecordSource) *Hybrid {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hybrid{
		members: members,
		merged:  make(chan model.Record),
		cancel:  cancel,
	}
	h.wg.Add(len(members))
	for _, src := range members {
		go h.pull(ctx, src)
	}
	go func() {
		h.wg.Wait()
		close(h.merged)
	}()
	return h
}

func (h *Hybrid) pull(ctx context.Context, src model.RecordSource) {
	defer h.wg.Done()
	for {
		rec, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if errors.Is(err, io.EOF) {
				log.Printf("Hybrid member %s drained", src.Name())
				return
			}
			log.Printf("Hybrid member %s error: %v", src.Name(), err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(memberBackoff):
			}
			continue
		}
		select {
		case h.merged <- rec:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hybrid) Next(ctx context.Context) (model.Record, error) {
	select {
	case <-ctx.Done():
		return model.Record{}, ctx.Err()
	case rec, ok := <-h.merged:
		if !ok {
			return model.Record{}, io.EOF
		}
		return rec, nil
	}
}

func (h *Hybrid) Name() string { return "hybrid" }

func (h *Hybrid) Close() error {
	var first error
	h.closeOnce.Do(func() {
		h.cancel()
		for _, src := range h.members {
			if err := src.Close(); err != nil && first == nil {
				first = err
			}
		}
		h.wg.Wait()
	})
	return first
}
