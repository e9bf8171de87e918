// Package jobs runs the recurring background work: source syncs, the
// nightly enrichment backfill and a morning digest of the study queue.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/enrich"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/storage"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/sync"
)

// backfillBatch caps how many words one nightly run sends to the AI.
const backfillBatch = 25

// backfillTimeout bounds the nightly run so a hung upstream cannot leak a
// job past the next scheduled one.
const backfillTimeout = 30 * time.Minute

// Runner owns the background schedule.
type Runner struct {
	scheduler *gocron.Scheduler
	db        *storage.DB
	enrich    *enrich.Client // nil disables the nightly backfill
	logger    *slog.Logger
	syncDir   string
}

// New creates a runner. Pass a nil enrich client when no API key is
// configured; the other jobs still run.
func New(db *storage.DB, enrichClient *enrich.Client, logger *slog.Logger, syncDir string) *Runner {
	return &Runner{
		scheduler: gocron.NewScheduler(time.UTC),
		db:        db,
		enrich:    enrichClient,
		logger:    logger,
		syncDir:   syncDir,
	}
}

// Start registers the jobs and begins running them in the background.
func (r *Runner) Start(syncEveryMinutes int) {
	r.scheduler.Every(syncEveryMinutes).Minutes().Do(r.syncSources)
	if r.enrich != nil {
		r.scheduler.Every(1).Day().At("03:00").Do(r.backfillEnrichment)
	}
	r.scheduler.Every(1).Day().At("08:00").Do(r.morningDigest)
	r.scheduler.StartAsync()
}

// Stop halts the schedule. A job already running finishes first.
func (r *Runner) Stop() {
	r.scheduler.Stop()
}

func (r *Runner) syncSources() {
	if err := sync.RunSync(r.db, r.logger, r.syncDir); err != nil {
		r.logger.Error("scheduled sync failed", "error", err)
	}
}

func (r *Runner) backfillEnrichment() {
	ctx, cancel := context.WithTimeout(context.Background(), backfillTimeout)
	defer cancel()
	if err := enrich.Backfill(ctx, r.logger, r.db, r.enrich, backfillBatch); err != nil {
		r.logger.Error("enrichment backfill failed", "error", err)
	}
}

func (r *Runner) morningDigest() {
	now := time.Now()
	total, err := r.db.CountQueue(uuid.Nil, now)
	if err != nil {
		r.logger.Error("failed to count queues for digest", "error", err)
		return
	}
	r.logger.Info("today's study queue", "due", total.Due, "new", total.New)

	decks, err := r.db.ListDecks()
	if err != nil {
		r.logger.Error("failed to list decks for digest", "error", err)
		return
	}
	for _, deck := range decks {
		counts, err := r.db.CountQueue(deck.ID, now)
		if err != nil {
			r.logger.Error("failed to count deck queue", "deck", deck.Name, "error", err)
			continue
		}
		r.logger.Info("deck queue", "deck", deck.Name, "due", counts.Due, "new", counts.New)
	}
}
