package app

import (
	"context"
	"time"

	"github.com/h4rdev/batch_access_bot/internal/service"
	"go.uber.org/zap"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	grantService *service.GrantService
	interval     time.Duration
	logger       *zap.Logger
	stopChan     chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(grantService *service.GrantService, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		grantService: grantService,
		interval:     interval,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("interval", s.interval))

	go s.runExpirationTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runExpirationTask периодически проверяет сроки демо-доступов.
// Первый проход идёт почти сразу после старта: после рестарта истёкшие
// за время простоя гранты должны быть отозваны без ожидания полного тика.
func (s *Scheduler) runExpirationTask(ctx context.Context) {
	startup := time.NewTimer(5 * time.Second)
	defer startup.Stop()

	select {
	case <-startup.C:
		s.grantService.CheckExpirations(ctx)
	case <-s.stopChan:
		return
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.grantService.CheckExpirations(ctx)
		case <-s.stopChan:
			s.logger.Info("Expiration task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Expiration task cancelled")
			return
		}
	}
}
