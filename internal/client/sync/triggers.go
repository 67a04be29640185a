package sync

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Start launches the engine's background triggers: the periodic cron trigger
// and the connectivity watcher. Both fire SyncIfIdle, so an in-flight cycle
// is never doubled. Start is a no-op for triggers whose Options disable them.
func (e *Engine) Start(ctx context.Context) error {
	ctx, e.cancel = context.WithCancel(ctx)

	if e.opts.CronSpec != "" {
		e.cron = cron.New()
		_, err := e.cron.AddFunc(e.opts.CronSpec, func() {
			ran, err := e.SyncIfIdle(ctx)
			if err != nil {
				e.log.Warn(ctx, "scheduled sync failed", "error", err)
				return
			}
			if !ran {
				e.log.Debug(ctx, "scheduled sync skipped, cycle already in flight")
			}
		})
		if err != nil {
			e.cancel()
			return err
		}
		e.cron.Start()
		e.log.Info(ctx, "periodic sync trigger started", "spec", e.opts.CronSpec)
	}

	if e.opts.PingInterval > 0 {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.watchConnectivity(ctx)
		}()
	}

	return nil
}

// Stop halts the triggers and waits for them to exit. A cycle already in
// flight is left to finish on its own.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	if e.cron != nil {
		<-e.cron.Stop().Done()
	}
	e.wg.Wait()
}

// watchConnectivity probes the server on a ticker and fires a sync on the
// offline-to-online transition, so changes queued while disconnected go out
// as soon as the network is back instead of waiting for the next schedule.
func (e *Engine) watchConnectivity(ctx context.Context) {
	ticker := time.NewTicker(e.opts.PingInterval)
	defer ticker.Stop()

	online := false

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, e.opts.PingTimeout)
			err := e.client.Ping(pingCtx)
			cancel()

			if err != nil {
				if online {
					e.log.Info(ctx, "server unreachable, going offline", "error", err)
				}
				online = false
				continue
			}

			if !online {
				online = true
				e.log.Info(ctx, "server reachable, triggering sync")
				if _, err := e.SyncIfIdle(ctx); err != nil {
					e.log.Warn(ctx, "reconnect sync failed", "error", err)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
