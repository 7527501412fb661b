package rewind

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type (
	// saveWorker persists histories in the background so that frequent
	// stores under AlwaysPersist do not block on serializer I/O
	saveWorker struct {
		ctx    context.Context
		cancel context.CancelFunc
		queue  chan saveRequest
		config SaveConfig
		wg     sync.WaitGroup
	}

	saveRequest struct {
		ser Serializer
		id  StackID
		h   History
	}
)

func newSaveWorker(config SaveConfig) *saveWorker {
	ctx, cancel := context.WithCancel(context.Background())

	sw := &saveWorker{
		config: config,
		queue:  make(chan saveRequest, config.MaxQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < config.WorkerCount; i++ {
		sw.wg.Add(1)
		go sw.worker(i)
	}

	return sw
}

func (sw *saveWorker) worker(id int) {
	defer sw.wg.Done()

	for {
		select {
		case <-sw.ctx.Done():
			return
		case req := <-sw.queue:
			sw.save(id, req)
		}
	}
}

func (sw *saveWorker) save(workerID int, req saveRequest) {
	ctx, cancel := context.WithTimeout(sw.ctx, sw.config.SaveTimeout)
	defer cancel()

	start := time.Now()
	err := req.ser.Save(ctx, req.id, req.h)
	duration := time.Since(start)

	if err != nil {
		slog.Error("Failed to persist history",
			slog.Int("worker_id", workerID),
			slog.Any("stack_id", req.id),
			slog.Int("depth", req.h.Depth()),
			slog.Duration("duration", duration),
			slog.Any("error", err),
		)
		return
	}

	slog.Debug("History persisted",
		slog.Int("worker_id", workerID),
		slog.Any("stack_id", req.id),
		slog.Int("depth", req.h.Depth()),
		slog.Duration("duration", duration),
	)
}

func (sw *saveWorker) enqueue(ser Serializer, id StackID, h History) bool {
	req := saveRequest{
		ser: ser,
		id:  id,
		h:   h,
	}

	select {
	case sw.queue <- req:
		return true
	default:
		slog.Warn("Save queue full, dropping request",
			slog.Any("stack_id", id),
			slog.Int("depth", h.Depth()),
			slog.Int("queue_size", len(sw.queue)),
		)
		return false
	}
}

func (sw *saveWorker) Stop() {
	sw.cancel()
	sw.wg.Wait()
	close(sw.queue)
}
