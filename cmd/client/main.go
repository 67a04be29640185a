package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/dmitrijs2005/possync/internal/client/client"
	"github.com/dmitrijs2005/possync/internal/client/config"
	"github.com/dmitrijs2005/possync/internal/client/models"
	"github.com/dmitrijs2005/possync/internal/client/sync"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/locking"
	"github.com/dmitrijs2005/possync/internal/logging"
	"golang.org/x/term"

	_ "modernc.org/sqlite"
)

func readSecret(device string) (string, error) {
	fmt.Printf("secret for device %q: ", device)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	secret := cfg.Secret
	if secret == "" && term.IsTerminal(int(syscall.Stdin)) {
		s, err := readSecret(cfg.Device)
		if err != nil {
			log.Printf("reading secret: %v", err)
			return
		}
		secret = s
	}

	db, err := client.InitDatabase(ctx, cfg.DatabaseFile)
	if err != nil {
		log.Printf("db init error: %v", err)
		return
	}
	defer db.Close()

	httpc := client.NewHTTPClient(cfg.ServerEndpointAddr, cfg.Device, secret)
	defer httpc.Close()

	registry := models.DefaultRegistry()

	// The lease survives in the database, so a second process pointed at
	// the same file waits instead of running a concurrent cycle. The locker
	// renews the lease while a cycle runs; the TTL only delays takeover
	// after a crash.
	locker := locking.NewLeaseLocker(db, common.SyncLockName, 30*time.Second)

	engine := sync.NewEngine(db, httpc, registry, locker, logger, sync.Options{
		CronSpec:     fmt.Sprintf("@every %s", cfg.SyncInterval),
		PingInterval: cfg.OnlineCheckInterval,
	})

	if err := engine.Start(ctx); err != nil {
		log.Printf("engine start error: %v", err)
		return
	}
	defer engine.Stop()

	// First cycle runs eagerly so a freshly provisioned till converges
	// before the schedule kicks in.
	if err := engine.Sync(ctx); err != nil {
		logger.Warn(ctx, "initial sync failed", "error", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-sigs

	logger.Info(ctx, "shutting down")
}
