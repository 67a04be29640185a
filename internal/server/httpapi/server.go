// Package httpapi exposes the sync server over HTTP: the /sync push+pull
// surface the clients talk to, device auth, and the /admin tooling routes.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/server/models"
	"github.com/dmitrijs2005/possync/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SyncService is the record-store surface the handlers need.
type SyncService interface {
	ApplyBatch(ctx context.Context, recs []models.Record) error
	Deltas(ctx context.Context, since int64) (*services.DeltaSet, error)
	Restore(ctx context.Context, collections map[string][]models.Record) error
	Dump(ctx context.Context, collection string) ([]models.Record, error)
	BulkLoad(ctx context.Context, collection string, recs []models.Record, overwrite bool, dryRun bool) (int, error)
}

// DeviceService is the auth surface the handlers need.
type DeviceService interface {
	Register(ctx context.Context, name string, secret string) (*models.Device, error)
	Login(ctx context.Context, name string, secret string) (string, error)
}

// BackupUploader snapshots a collection dump to external storage.
type BackupUploader interface {
	Upload(ctx context.Context, collection string, body []byte) (string, error)
}

type Server struct {
	log       logging.Logger
	secretKey []byte
	sync      SyncService
	devices   DeviceService
	backup    BackupUploader
}

func NewServer(log logging.Logger, secretKey []byte, sync SyncService, devices DeviceService, backup BackupUploader) *Server {
	return &Server{
		log:       log.With("component", "httpapi"),
		secretKey: secretKey,
		sync:      sync,
		devices:   devices,
		backup:    backup,
	}
}

// Router builds the route tree. Everything except ping, login, and register
// requires a device bearer token.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ping", s.handlePing)
	r.Post("/login", s.handleLogin)
	r.Post("/register", s.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/sync", s.handlePush)
		r.Get("/sync", s.handlePull)

		r.Post("/admin/restore", s.handleRestore)
		r.Get("/admin", s.handleDump)
		r.Post("/admin", s.handleBulkLoad)
		r.Post("/admin/backup", s.handleBackup)
	})

	return r
}
