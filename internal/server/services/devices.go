package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/server/auth"
	"github.com/dmitrijs2005/possync/internal/server/config"
	"github.com/dmitrijs2005/possync/internal/server/models"
	"github.com/dmitrijs2005/possync/internal/server/repositories/repomanager"
)

// DeviceService handles device registration and login.
type DeviceService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewDeviceService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *DeviceService {
	return &DeviceService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a new device with an argon2id-hashed secret.
func (s *DeviceService) Register(ctx context.Context, name string, secret string) (*models.Device, error) {
	if name == "" || secret == "" {
		return nil, fmt.Errorf("device name and secret are required")
	}

	hash, err := auth.HashSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("error hashing secret: %w", err)
	}

	device, err := s.repomanager.Devices(s.db).Create(ctx, &models.Device{Name: name, SecretHash: hash})
	if err != nil {
		return nil, err
	}

	return device, nil
}

// Login verifies the device secret and mints an access token. A missing
// device and a wrong secret are indistinguishable to the caller.
func (s *DeviceService) Login(ctx context.Context, name string, secret string) (string, error) {
	device, err := s.repomanager.Devices(s.db).GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", fmt.Errorf("error searching device: %w", err)
	}

	ok, err := auth.VerifySecret(secret, device.SecretHash)
	if err != nil {
		return "", fmt.Errorf("error verifying secret: %w", err)
	}
	if !ok {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(device.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}

	return token, nil
}
