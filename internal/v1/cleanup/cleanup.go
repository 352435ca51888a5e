// Package cleanup implements the periodic stale-room sweep described in spec.md
// §4.10. It follows the same cooperative-shutdown shape as the teacher's Room
// lifecycle (internal/v1/room/room.go's Shutdown): a cancellable context plus a
// WaitGroup so the owning process can wait for the in-flight sweep to finish
// before exiting.
package cleanup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/classroom-games/chicken-backend/internal/v1/logging"
	"github.com/classroom-games/chicken-backend/internal/v1/metrics"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

// Default policy from spec.md §4.10.
const (
	DefaultInterval                = 6 * time.Hour
	DefaultWaitingPlayingThreshold = 2 * time.Hour
	DefaultFinishedThreshold       = 24 * time.Hour
)

// Cleaner periodically deletes rooms that have been idle past their status's
// threshold: FINISHED rooms after the finished threshold (DefaultFinishedThreshold
// unless overridden), WAITING/PLAYING rooms after the waiting/playing threshold
// (DefaultWaitingPlayingThreshold unless overridden), measured against updated_at.
type Cleaner struct {
	db                      store.DB
	interval                time.Duration
	waitingPlayingThreshold time.Duration
	finishedThreshold       time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Cleaner. Pass zero durations to use the spec.md §4.10 defaults.
func New(db store.DB, interval, waitingPlayingThreshold, finishedThreshold time.Duration) *Cleaner {
	if interval == 0 {
		interval = DefaultInterval
	}
	if waitingPlayingThreshold == 0 {
		waitingPlayingThreshold = DefaultWaitingPlayingThreshold
	}
	if finishedThreshold == 0 {
		finishedThreshold = DefaultFinishedThreshold
	}
	return &Cleaner{
		db:                      db,
		interval:                interval,
		waitingPlayingThreshold: waitingPlayingThreshold,
		finishedThreshold:       finishedThreshold,
	}
}

// Start launches the sweep loop in a background goroutine. Callers must call
// Stop on shutdown.
func (c *Cleaner) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.run(runCtx)
}

func (c *Cleaner) run(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

// sweep runs one cleanup pass. It is exported at package level only through
// Start's loop; tests drive it directly via SweepOnce.
func (c *Cleaner) sweep(ctx context.Context) {
	deleted, err := c.SweepOnce(ctx)
	if err != nil {
		logging.Error(ctx, "stale room sweep failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		logging.Info(ctx, "stale room sweep complete", zap.Int("deleted", deleted))
	}
}

// SweepOnce lists and deletes every currently-stale room, returning how many
// were removed. Exposed for direct invocation by an ops endpoint or a test.
func (c *Cleaner) SweepOnce(ctx context.Context) (int, error) {
	var stale []types.Room
	err := c.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rooms, err := tx.ListStaleRooms(ctx, int64(c.waitingPlayingThreshold.Seconds()), int64(c.finishedThreshold.Seconds()))
		if err != nil {
			return err
		}
		stale = rooms
		return nil
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, room := range stale {
		delErr := c.db.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.DeleteRoom(ctx, room.ID)
		})
		if delErr != nil {
			logging.Error(ctx, "failed to delete stale room", zap.String("room_id", string(room.ID)), zap.Error(delErr))
			continue
		}
		metrics.RoomsDeletedTotal.WithLabelValues(string(room.Status)).Inc()
		if room.Status != types.RoomStatusFinished {
			// FINISHED rooms were already removed from the active gauge by EndGame.
			metrics.ActiveRooms.Dec()
		}
		deleted++
	}
	return deleted, nil
}

// Stop cancels the sweep loop and waits for the current pass to finish, or for
// ctx to expire first.
func (c *Cleaner) Stop(ctx context.Context) error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
