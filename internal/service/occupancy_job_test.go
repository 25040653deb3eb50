package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinieshwan/parking-system/internal/logger"
)

func TestNewOccupancyScheduler(t *testing.T) {
	f := newFixture(t)

	c, err := NewOccupancyScheduler("@every 1m", f.svc, logger.NewNop())
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = NewOccupancyScheduler("every now and then", f.svc, logger.NewNop())
	assert.Error(t, err)
}
