// Package scheduler runs periodic background checks for the manifest service.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	appmanifest "github.com/manifest/backend/internal/application/manifest"
	"go.uber.org/zap"
)

// ErrInvalidConfig is returned when the monitor configuration is invalid
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// PendingBatchSource lists batches still pending after olderThan
type PendingBatchSource interface {
	PendingBatches(ctx context.Context, olderThan time.Duration) ([]appmanifest.BatchView, error)
}

// PendingBatchMonitorConfig holds configuration for the monitor
type PendingBatchMonitorConfig struct {
	// CheckInterval is how often the ledger is queried
	CheckInterval time.Duration
	// OlderThan is the age after which a pending batch counts as stuck
	OlderThan time.Duration
	// QueryTimeout bounds one ledger query
	QueryTimeout time.Duration
}

// DefaultPendingBatchMonitorConfig returns default monitor configuration
func DefaultPendingBatchMonitorConfig() PendingBatchMonitorConfig {
	return PendingBatchMonitorConfig{
		CheckInterval: time.Minute,
		OlderThan:     15 * time.Minute,
		QueryTimeout:  10 * time.Second,
	}
}

// Validate checks the configuration
func (c PendingBatchMonitorConfig) Validate() error {
	if c.CheckInterval <= 0 || c.OlderThan <= 0 || c.QueryTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// PendingBatchMonitor periodically counts batches whose carrier call never
// completed. A batch stays pending when the carrier failed or reconciliation
// could not be persisted, so the count is an operator signal.
type PendingBatchMonitor struct {
	config  PendingBatchMonitorConfig
	source  PendingBatchSource
	observe func(n int)
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastCount int
}

// NewPendingBatchMonitor creates a monitor. observe may be nil.
func NewPendingBatchMonitor(
	config PendingBatchMonitorConfig,
	source PendingBatchSource,
	observe func(n int),
	logger *zap.Logger,
) (*PendingBatchMonitor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if observe == nil {
		observe = func(int) {}
	}
	return &PendingBatchMonitor{
		config:  config,
		source:  source,
		observe: observe,
		logger:  logger,
	}, nil
}

// Start runs a first check and then one per interval until Stop
func (m *PendingBatchMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = true
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go m.runLoop(ctx)

	m.logger.Info("Pending batch monitor started",
		zap.Duration("check_interval", m.config.CheckInterval),
		zap.Duration("older_than", m.config.OlderThan),
	)
	return nil
}

// Stop stops the loop and waits for an in-flight check
func (m *PendingBatchMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("Pending batch monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastCount returns the result of the latest successful check
func (m *PendingBatchMonitor) LastCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCount
}

func (m *PendingBatchMonitor) runLoop(ctx context.Context) {
	defer m.wg.Done()

	m.Check(ctx)

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check queries the ledger once. Query failures keep the previous count.
func (m *PendingBatchMonitor) Check(ctx context.Context) {
	queryCtx, cancel := context.WithTimeout(ctx, m.config.QueryTimeout)
	defer cancel()

	batches, err := m.source.PendingBatches(queryCtx, m.config.OlderThan)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("Pending batch check failed", zap.Error(err))
		}
		return
	}

	m.mu.Lock()
	m.lastCount = len(batches)
	m.mu.Unlock()
	m.observe(len(batches))

	if len(batches) == 0 {
		return
	}
	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID.String())
	}
	m.logger.Warn("Manifest batches stuck in pending",
		zap.Int("count", len(batches)),
		zap.Duration("older_than", m.config.OlderThan),
		zap.Strings("batch_ids", ids),
	)
}
