package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type AuditLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Handler    string    `json:"handler"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	User       string    `json:"user,omitempty"`
	TrackingID string    `json:"tracking_id,omitempty"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status,omitempty"`
	Request    string    `json:"request,omitempty"`
}

// AuditManager collects request audit entries through an aggregator that
// batches by size or timeout, and a pool of workers that emit the batches.
// Entries are never dropped silently: when the pipeline is saturated the
// batch is emitted inline.
type AuditManager struct {
	workerCount int
	batchSize   int
	timeout     time.Duration
	logger      *zap.Logger

	inputChan  chan AuditLogEntry
	batchChan  chan []AuditLogEntry
	shutdownCh chan struct{}
	once       sync.Once

	wg sync.WaitGroup
}

func NewAuditManager(workerCount, batchSize int, timeout time.Duration, logger *zap.Logger) *AuditManager {
	return &AuditManager{
		workerCount: workerCount,
		batchSize:   batchSize,
		timeout:     timeout,
		logger:      logger,
		inputChan:   make(chan AuditLogEntry, workerCount*batchSize*2),
		batchChan:   make(chan []AuditLogEntry, workerCount*2),
		shutdownCh:  make(chan struct{}),
	}
}

func (m *AuditManager) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.runAggregator(ctx)

	for i := 0; i < m.workerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(ctx, i)
	}
}

func (m *AuditManager) Shutdown(ctx context.Context) {
	m.once.Do(func() {
		close(m.shutdownCh)

		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			m.logger.Info("audit manager stopped")
		case <-ctx.Done():
			m.logger.Warn("audit manager shutdown interrupted")
		}
	})
}

func (m *AuditManager) LogEntry(ctx context.Context, entry AuditLogEntry) {
	select {
	case m.inputChan <- entry:
	case <-ctx.Done():
		m.emitEntry(-1, entry)
	}
}

func (m *AuditManager) runAggregator(ctx context.Context) {
	defer m.wg.Done()

	var (
		batch    []AuditLogEntry
		timer    *time.Timer
		timeoutC <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
		if len(batch) > 0 {
			m.dispatchBatch(batch)
		}
		close(m.batchChan)
	}()

	for {
		select {
		case entry := <-m.inputChan:
			batch = append(batch, entry)
			if len(batch) >= m.batchSize {
				m.dispatchBatch(batch)
				batch = nil
				timeoutC = nil
			} else if len(batch) == 1 {
				timer = time.NewTimer(m.timeout)
				timeoutC = timer.C
			}

		case <-timeoutC:
			m.dispatchBatch(batch)
			batch = nil
			timeoutC = nil

		case <-ctx.Done():
			return

		case <-m.shutdownCh:
			return
		}
	}
}

// dispatchBatch hands a batch to the worker pool, emitting inline when the
// pool is saturated.
func (m *AuditManager) dispatchBatch(batch []AuditLogEntry) {
	batchCopy := make([]AuditLogEntry, len(batch))
	copy(batchCopy, batch)

	select {
	case m.batchChan <- batchCopy:
	default:
		m.emitBatch(-1, batchCopy)
	}
}

func (m *AuditManager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()

	for {
		select {
		case batch, ok := <-m.batchChan:
			if !ok {
				return
			}
			m.emitBatch(id, batch)
		case <-ctx.Done():
			// Drain whatever is still queued before exiting.
			for {
				select {
				case batch, ok := <-m.batchChan:
					if !ok {
						return
					}
					m.emitBatch(id, batch)
				default:
					return
				}
			}
		}
	}
}

func (m *AuditManager) emitBatch(workerID int, batch []AuditLogEntry) {
	for _, entry := range batch {
		m.emitEntry(workerID, entry)
	}
}

func (m *AuditManager) emitEntry(workerID int, entry AuditLogEntry) {
	fields := []zap.Field{
		zap.Int("worker", workerID),
		zap.Time("at", entry.Timestamp),
		zap.String("handler", entry.Handler),
		zap.String("method", entry.Method),
		zap.String("path", entry.Path),
		zap.Int("status_code", entry.StatusCode),
	}
	if entry.User != "" {
		fields = append(fields, zap.String("user", entry.User))
	}
	if entry.TrackingID != "" {
		fields = append(fields, zap.String("tracking_id", entry.TrackingID))
	}
	if entry.NewStatus != "" {
		fields = append(fields,
			zap.String("old_status", entry.OldStatus),
			zap.String("new_status", entry.NewStatus))
	}
	m.logger.Info("audit", fields...)
}
