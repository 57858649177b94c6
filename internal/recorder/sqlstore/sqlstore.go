// Package sqlstore records telemetry frames through GORM, either to Postgres
// or to an in-memory SQLite database dumped to disk.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/surgisim/fusion/internal/database"
	"github.com/surgisim/fusion/internal/queue"
	"github.com/surgisim/fusion/internal/recorder"
	"github.com/surgisim/fusion/internal/trajectory"
)

const (
	defaultFlushInterval = 500 * time.Millisecond
	defaultQueueLimit    = 50_000
	batchSize            = 1000
)

// Config holds sqlstore configuration.
type Config struct {
	SessionName   string
	FlushInterval time.Duration
	// DumpInterval periodically vacuums a local SQLite database to disk.
	// Zero dumps only on Close.
	DumpInterval time.Duration
	QueueLimit   int
}

// Backend writes frames in batches from a bounded queue.
type Backend struct {
	cfg    Config
	db     *database.Manager
	logger *slog.Logger

	sessionID uint
	frames    *queue.Queue[FrameRecord]
	paths     *trajectory.Set
	pathsMu   sync.Mutex

	stopChan chan struct{}
	wg       sync.WaitGroup
}

var _ recorder.Backend = (*Backend)(nil)

// New creates a backend on an unconnected manager. Init connects it.
func New(cfg Config, db *database.Manager, logger *slog.Logger) *Backend {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.QueueLimit <= 0 {
		cfg.QueueLimit = defaultQueueLimit
	}
	if cfg.SessionName == "" {
		cfg.SessionName = "fusion"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:    cfg,
		db:     db,
		logger: logger,
	}
}

// Init connects the database, migrates the schema, opens a session and
// starts the writer.
func (b *Backend) Init(ctx context.Context) error {
	if !b.db.IsValid {
		if err := b.db.Connect(); err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
	}
	if err := b.db.Setup(Models...); err != nil {
		return err
	}

	session := Session{Name: b.cfg.SessionName}
	if err := b.db.DB.WithContext(ctx).Create(&session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	b.sessionID = session.ID

	b.frames = queue.NewBounded[FrameRecord](b.cfg.QueueLimit)
	b.paths = trajectory.NewSet()
	b.stopChan = make(chan struct{})

	b.wg.Add(1)
	go b.writeLoop()
	if b.db.ShouldSaveLocal && b.cfg.DumpInterval > 0 && b.db.Config.SqliteFilePath != "" {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	b.logger.Info("Recording session started", "session", b.sessionID, "driver", b.db.DB.Name())
	return nil
}

// SessionID returns the id of the current session.
func (b *Backend) SessionID() uint {
	return b.sessionID
}

// Record queues s for the writer.
func (b *Backend) Record(s recorder.Sample) error {
	if b.frames == nil {
		return errors.New("sqlstore not initialized")
	}

	data, err := json.Marshal(s.Data)
	if err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", s.Frame, err)
	}

	rec := FrameRecord{
		SessionID:      b.sessionID,
		Frame:          s.Frame,
		RecordedAt:     s.Time,
		AnimationValue: s.Data.Offset.AnimationValue,
		Data:           datatypes.JSON(data),
	}
	if b.frames.Push(rec) == 0 {
		return fmt.Errorf("frame %d dropped: write queue full", s.Frame)
	}

	b.pathsMu.Lock()
	b.paths.Track(s.Frame, &s.Data)
	b.pathsMu.Unlock()
	return nil
}

// Dropped returns frames rejected by the full write queue.
func (b *Backend) Dropped() uint64 {
	if b.frames == nil {
		return 0
	}
	return b.frames.Dropped()
}

// Flush writes every queued frame now.
func (b *Backend) Flush() error {
	if b.frames == nil || b.frames.Empty() {
		return nil
	}

	items := b.frames.GetAndEmpty()
	tx := b.db.DB.Begin()
	if err := tx.CreateInBatches(&items, batchSize).Error; err != nil {
		tx.Rollback()
		b.frames.Push(items...)
		return fmt.Errorf("error writing %d frames: %w", len(items), err)
	}
	return tx.Commit().Error
}

// Close stops the writer, flushes remaining frames, stores trajectories and
// closes the database.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	b.wg.Wait()
	b.stopChan = nil

	errs := []error{b.Flush(), b.writeTrajectories()}

	now := time.Now()
	errs = append(errs, b.db.DB.Model(&Session{}).Where("id = ?", b.sessionID).Update("ended_at", &now).Error)
	errs = append(errs, b.db.Close())
	return errors.Join(errs...)
}

func (b *Backend) writeTrajectories() error {
	b.pathsMu.Lock()
	defer b.pathsMu.Unlock()

	var records []TrajectoryRecord
	for _, p := range b.paths.Paths() {
		if p.Len() == 0 {
			continue
		}
		records = append(records, TrajectoryRecord{
			SessionID: b.sessionID,
			Name:      p.Name,
			Points:    p.Len(),
			Length:    p.Length(),
			WKT:       p.WKT(),
		})
	}
	if len(records) == 0 {
		return nil
	}
	if err := b.db.DB.Create(&records).Error; err != nil {
		return fmt.Errorf("error writing trajectories: %w", err)
	}
	return nil
}

func (b *Backend) writeLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.logger.Error("Failed to write frames", "error", err)
			}
		}
	}
}

func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.db.DumpMemoryToDisk(); err != nil {
				b.logger.Error("Periodic dump failed", "error", err)
			}
		}
	}
}
