// Package devices stores registered POS terminals and their secret hashes.
package devices

import (
	"context"

	"github.com/dmitrijs2005/possync/internal/server/models"
)

type Repository interface {
	// Create registers a new device. Returns common.ErrDeviceExists when the
	// name is already taken.
	Create(ctx context.Context, d *models.Device) (*models.Device, error)

	// GetByName returns a device by its unique name, or common.ErrorNotFound.
	GetByName(ctx context.Context, name string) (*models.Device, error)
}
