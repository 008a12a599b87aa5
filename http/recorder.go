package http

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"housevalue/db"
)

// PredictionSink 预测记录存储
type PredictionSink interface {
	SavePrediction(ctx context.Context, entry db.PredictionLog) error
}

// PredictionRecorder 异步写入预测记录, so a slow database never holds up a
// response. Entries are dropped when the buffer is full.
type PredictionRecorder struct {
	sink    PredictionSink
	logger  *zap.Logger
	entries chan db.PredictionLog
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

// NewPredictionRecorder 创建记录器并启动写入协程
func NewPredictionRecorder(sink PredictionSink, logger *zap.Logger, buffer int) *PredictionRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 256
	}
	r := &PredictionRecorder{
		sink:    sink,
		logger:  logger,
		entries: make(chan db.PredictionLog, buffer),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record 提交一条记录, 不阻塞. Entries after Close are discarded.
func (r *PredictionRecorder) Record(entry db.PredictionLog) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.entries <- entry:
	default:
		r.logger.Warn("prediction log buffer full, dropping entry",
			zap.String("request_id", entry.RequestID))
	}
}

// Close 刷新剩余记录并停止
func (r *PredictionRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.entries)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *PredictionRecorder) run() {
	defer r.wg.Done()
	for entry := range r.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.sink.SavePrediction(ctx, entry); err != nil {
			r.logger.Error("save prediction failed",
				zap.String("request_id", entry.RequestID),
				zap.Error(err))
		}
		cancel()
	}
}
