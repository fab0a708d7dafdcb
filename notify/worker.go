package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Worker drains events from a buffered channel into its sinks without
// blocking the request path. Logging an event when the buffer is full drops
// it with a warning rather than stalling the caller.
type Worker struct {
	eventCh chan Event
	sinks   []Sink
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorker(bufferSize int, sinks ...Sink) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		sinks:   sinks,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				slog.Info("draining events before shutdown", "remaining_events", len(w.eventCh))
				for len(w.eventCh) > 0 {
					w.save(context.Background(), <-w.eventCh)
				}
				return
			case event := <-w.eventCh:
				w.save(w.ctx, event)
			}
		}
	}()
}

func (w *Worker) save(ctx context.Context, event Event) {
	for _, sink := range w.sinks {
		if err := sink.Save(ctx, event); err != nil {
			slog.Error("failed to save event", "error", err, "event_type", event.Type)
		}
	}
}

func (w *Worker) Log(event Event) {
	select {
	case w.eventCh <- event:
	default:
		slog.Warn("event channel full, dropping event", "event_type", event.Type)
	}
}

func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
	close(w.eventCh)
}
