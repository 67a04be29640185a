package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/server/models"
)

type credentialsRequest struct {
	Device string `json:"device"`
	Secret string `json:"secret"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

type registerResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type outboxEntry struct {
	Collection string        `json:"collection"`
	DocID      string        `json:"docId"`
	Op         string        `json:"type"`
	Payload    models.Record `json:"payload"`
}

type pushRequest struct {
	Outbox []outboxEntry `json:"outbox"`
}

type pullResponse struct {
	Status     string                     `json:"status,omitempty"`
	Deltas     map[string][]models.Record `json:"deltas,omitempty"`
	ServerTime int64                      `json:"serverTime,omitempty"`
}

type bulkLoadResponse struct {
	Loaded int  `json:"loaded"`
	DryRun bool `json:"dryRun,omitempty"`
}

type backupResponse struct {
	Key string `json:"key"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	token, err := s.devices.Login(r.Context(), req.Device, req.Secret)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.log.Error(r.Context(), "login failed", "device", req.Device, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	device, err := s.devices.Register(r.Context(), req.Device, req.Secret)
	if err != nil {
		if errors.Is(err, common.ErrDeviceExists) {
			http.Error(w, "device already registered", http.StatusConflict)
			return
		}
		s.log.Error(r.Context(), "registration failed", "device", req.Device, "error", err)
		http.Error(w, "registration failed", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{ID: device.ID, Name: device.Name})
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	recs := make([]models.Record, 0, len(req.Outbox))
	for _, e := range req.Outbox {
		rec := e.Payload
		rec.Collection = e.Collection
		recs = append(recs, rec)
	}

	if err := s.sync.ApplyBatch(r.Context(), recs); err != nil {
		s.log.Error(r.Context(), "push rejected", "entries", len(recs), "error", err)
		http.Error(w, "push rejected", http.StatusBadRequest)
		return
	}

	s.log.Info(r.Context(), "push accepted", "entries", len(recs))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	since := int64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "malformed since parameter", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	res, err := s.sync.Deltas(r.Context(), since)
	if err != nil {
		s.log.Error(r.Context(), "delta query failed", "since", since, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if res.NeedsRestore {
		writeJSON(w, http.StatusOK, pullResponse{Status: "needs_restore"})
		return
	}

	writeJSON(w, http.StatusOK, pullResponse{Deltas: res.Deltas, ServerTime: res.ServerTime})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var collections map[string][]models.Record
	if err := json.NewDecoder(r.Body).Decode(&collections); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	if err := s.sync.Restore(r.Context(), collections); err != nil {
		s.log.Error(r.Context(), "restore failed", "collections", len(collections), "error", err)
		http.Error(w, "restore failed", http.StatusBadRequest)
		return
	}

	s.log.Info(r.Context(), "store reseeded", "collections", len(collections))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("file")
	if collection == "" {
		http.Error(w, "missing file parameter", http.StatusBadRequest)
		return
	}

	recs, err := s.sync.Dump(r.Context(), collection)
	if err != nil {
		s.log.Error(r.Context(), "dump failed", "collection", collection, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleBulkLoad(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("file")
	if collection == "" {
		http.Error(w, "missing file parameter", http.StatusBadRequest)
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "append"
	}
	if mode != "append" && mode != "overwrite" {
		http.Error(w, "mode must be append or overwrite", http.StatusBadRequest)
		return
	}
	dryRun := r.URL.Query().Get("dry_run") == "true"

	var recs []models.Record
	if err := json.NewDecoder(r.Body).Decode(&recs); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	loaded, err := s.sync.BulkLoad(r.Context(), collection, recs, mode == "overwrite", dryRun)
	if err != nil {
		s.log.Error(r.Context(), "bulk load failed", "collection", collection, "error", err)
		http.Error(w, "bulk load failed", http.StatusBadRequest)
		return
	}

	s.log.Info(r.Context(), "bulk load complete", "collection", collection, "mode", mode, "dryRun", dryRun, "loaded", loaded)
	writeJSON(w, http.StatusOK, bulkLoadResponse{Loaded: loaded, DryRun: dryRun})
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("file")
	if collection == "" {
		http.Error(w, "missing file parameter", http.StatusBadRequest)
		return
	}

	recs, err := s.sync.Dump(r.Context(), collection)
	if err != nil {
		s.log.Error(r.Context(), "backup dump failed", "collection", collection, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(recs)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	key, err := s.backup.Upload(r.Context(), collection, body)
	if err != nil {
		s.log.Error(r.Context(), "backup upload failed", "collection", collection, "error", err)
		http.Error(w, "backup failed", http.StatusBadGateway)
		return
	}

	s.log.Info(r.Context(), "backup uploaded", "collection", collection, "key", key)
	writeJSON(w, http.StatusOK, backupResponse{Key: key})
}
