package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"bluedex/internal/db"
	"bluedex/internal/repository"
	"bluedex/internal/storage"
)

type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Publisher drains the transactional outbox: it polls for pending tasks, marks
// them processing and hands their payloads to the producer. Failed sends are
// retried up to MaxAttempts.
type Publisher struct {
	db       db.DB
	repo     storage.OutboxTaskRepository
	producer Producer
	config   PublisherConfig
	logger   *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewPublisher(database db.DB, repo storage.OutboxTaskRepository, producer Producer, config PublisherConfig, logger *zap.Logger) *Publisher {
	return &Publisher{
		db:       database,
		repo:     repo,
		producer: producer,
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("starting outbox publisher",
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Int("batch_size", p.config.BatchSize))

	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error("outbox batch failed", zap.Error(err))
			}
		case <-p.stopCh:
			return
		case <-ctx.Done():
			p.Shutdown()
			return
		}
	}
}

func (p *Publisher) Shutdown() {
	p.stopOnce.Do(func() {
		close(p.stopCh)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(30 * time.Second):
			p.logger.Warn("outbox publisher shutdown timed out")
		}

		if err := p.producer.Close(); err != nil {
			p.logger.Error("failed to close producer", zap.Error(err))
		}
		p.logger.Info("outbox publisher stopped")
	})
}

func (p *Publisher) processBatch(ctx context.Context) error {
	tasks, err := p.repo.GetProcessableTasks(ctx, p.db, p.config.BatchSize, p.config.MaxAttempts)
	if err != nil {
		return fmt.Errorf("failed to fetch tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	err = db.InTx(ctx, p.db, func(tx db.Tx) error {
		for _, task := range tasks {
			if err := p.repo.UpdateTaskStatusTx(ctx, tx, task.ID, repository.TaskStatusProcessing, task.Attempts, nil, nil); err != nil {
				return fmt.Errorf("failed to mark task %s processing: %w", task.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, task := range tasks {
		select {
		case <-p.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.processSingleTask(ctx, task); err != nil {
			p.logger.Error("failed to process outbox task",
				zap.String("task_id", task.ID.String()), zap.Error(err))
		}
	}
	return nil
}

func (p *Publisher) processSingleTask(ctx context.Context, task *repository.OutboxTask) error {
	key := []byte(task.ID.String())

	if err := p.producer.SendMessage(ctx, task.Topic, key, task.Payload); err != nil {
		attempts := task.Attempts + 1
		errMsg := err.Error()
		if attempts >= p.config.MaxAttempts {
			p.logger.Warn("outbox task reached max attempts",
				zap.String("task_id", task.ID.String()), zap.Int("attempts", attempts))
		}
		if updateErr := p.repo.UpdateTaskStatus(ctx, p.db, task.ID, repository.TaskStatusFailed, attempts, &errMsg, nil); updateErr != nil {
			return fmt.Errorf("failed to record send failure: %w", updateErr)
		}
		return err
	}

	now := time.Now().UTC()
	if err := p.repo.UpdateTaskStatus(ctx, p.db, task.ID, repository.TaskStatusDone, task.Attempts, nil, &now); err != nil {
		return fmt.Errorf("failed to mark task done: %w", err)
	}
	return nil
}
