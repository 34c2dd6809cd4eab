package app

import (
	"testing"

	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/permission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForeground_ResumeRefreshesScreen(t *testing.T) {
	store := permission.NewStore()
	screen := permission.NewScreen(store)
	fg := NewForeground(screen)

	require.NoError(t, fg.Resume())
	assert.Equal(t, domain.StateResumed, fg.State())
	assert.Equal(t, 2, screen.Refreshes())
	assert.False(t, screen.Statuses()[0].Granted)

	store.Grant(domain.PermissionDrawOverlay)
	require.NoError(t, fg.Resume())

	assert.Equal(t, 3, screen.Refreshes())
	assert.True(t, screen.Statuses()[0].Granted)
}

func TestForeground_SessionsSurviveRestore(t *testing.T) {
	fg := NewForeground(permission.NewScreen(permission.NewStore()))

	for range 3 {
		require.NoError(t, fg.Resume())
	}
	require.NoError(t, fg.Background())
	require.NoError(t, fg.Resume())

	assert.Equal(t, 4, fg.Sessions())
}

func TestForeground_BackgroundStopsRefreshing(t *testing.T) {
	screen := permission.NewScreen(permission.NewStore())
	fg := NewForeground(screen)

	require.NoError(t, fg.Resume())
	require.NoError(t, fg.Background())
	refreshes := screen.Refreshes()

	assert.Equal(t, domain.StateDestroyed, fg.State())
	require.NoError(t, fg.Background())
	assert.Equal(t, refreshes, screen.Refreshes())
}
