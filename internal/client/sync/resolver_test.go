package sync

import (
	"testing"

	"github.com/dmitrijs2005/possync/internal/client/models"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		local  *models.Stamp
		remote models.Stamp
		want   Decision
	}{
		{
			name:   "absent local applies remote",
			local:  nil,
			remote: models.Stamp{Version: 1, UpdatedAt: 50},
			want:   ApplyRemote,
		},
		{
			name:   "higher remote version applies regardless of timestamp",
			local:  &models.Stamp{Version: 2, UpdatedAt: 100},
			remote: models.Stamp{Version: 3, UpdatedAt: 50},
			want:   ApplyRemote,
		},
		{
			name:   "equal version, newer remote timestamp applies",
			local:  &models.Stamp{Version: 2, UpdatedAt: 100},
			remote: models.Stamp{Version: 2, UpdatedAt: 150},
			want:   ApplyRemote,
		},
		{
			name:   "equal version, older remote timestamp keeps local",
			local:  &models.Stamp{Version: 2, UpdatedAt: 100},
			remote: models.Stamp{Version: 2, UpdatedAt: 50},
			want:   KeepLocal,
		},
		{
			name:   "equal version, equal timestamp keeps local",
			local:  &models.Stamp{Version: 2, UpdatedAt: 100},
			remote: models.Stamp{Version: 2, UpdatedAt: 100},
			want:   KeepLocal,
		},
		{
			name:   "lower remote version keeps local",
			local:  &models.Stamp{Version: 4, UpdatedAt: 10},
			remote: models.Stamp{Version: 3, UpdatedAt: 9999},
			want:   KeepLocal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.local, tt.remote))
		})
	}
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "apply-remote", ApplyRemote.String())
	assert.Equal(t, "keep-local", KeepLocal.String())
}
