package persist

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/serviceflow/schedcore/internal/metrics"
	"github.com/serviceflow/schedcore/internal/store"
)

// Saver debounces store changes into background document saves. Register
// Trigger as the store's change hook; bursts of edits collapse into one save
// per debounce window.
type Saver struct {
	store    *store.Store
	userID   string
	backends []DocumentStore
	logger   *slog.Logger
	debounce time.Duration
	trigger  chan struct{}
}

func NewSaver(st *store.Store, userID string, backends []DocumentStore, logger *slog.Logger, debounce time.Duration) *Saver {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Saver{
		store:    st,
		userID:   userID,
		backends: backends,
		logger:   logger,
		debounce: debounce,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger marks the store dirty. Never blocks; repeated triggers while a
// save is pending coalesce.
func (s *Saver) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run loops until ctx is cancelled. A final save is attempted on shutdown if
// changes are still pending.
func (s *Saver) Run(ctx context.Context) {
	if len(s.backends) == 0 {
		s.logger.Warn("persistence disabled (no document store configured)")
		return
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				s.saveOnce(flushCtx)
				cancel()
			}
			return
		case <-s.trigger:
			if pending == nil {
				pending = time.After(s.debounce)
			}
		case <-pending:
			pending = nil
			s.saveOnce(ctx)
		}
	}
}

// Flush saves immediately, bypassing the debounce window.
func (s *Saver) Flush(ctx context.Context) {
	s.saveOnce(ctx)
}

func (s *Saver) saveOnce(ctx context.Context) {
	doc := s.store.Snapshot()
	raw, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error("document snapshot marshal failed", "err", err)
		return
	}

	for _, b := range s.backends {
		if err := b.Save(ctx, s.userID, raw); err != nil {
			metrics.DocumentSaves.WithLabelValues(b.Name(), "failed").Inc()
			s.logger.Warn("document save failed", "backend", b.Name(), "err", err)
			continue
		}
		metrics.DocumentSaves.WithLabelValues(b.Name(), "ok").Inc()
	}
	s.logger.Debug("document saved", "bytes", len(raw), "version", s.store.Version())
}
