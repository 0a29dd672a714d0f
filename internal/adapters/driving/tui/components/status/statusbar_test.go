package status

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/intunesync/internal/core/domain"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateFetching, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, domain.Counts{}, bar.Counts())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_InitAndUpdate(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.Nil(t, bar.Init())

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestStatusBar_ViewFetching(t *testing.T) {
	bar := NewBar(styles.Plain(), nil)

	view := bar.View()

	assert.Contains(t, view, "Fetching devices...")
	assert.Contains(t, view, "esc: cancel")
}

func TestStatusBar_ViewSyncingShowsCounts(t *testing.T) {
	bar := NewBar(styles.Plain(), nil)
	bar.SetState(StateSyncing)
	bar.SetCounts(domain.Counts{Synced: 3, Failed: 1, NotFound: 2})

	view := bar.View()

	assert.Contains(t, view, "3 synced · 1 failed · 2 not found")
}

func TestStatusBar_ViewDoneShowsScrollHints(t *testing.T) {
	bar := NewBar(styles.Plain(), nil)
	bar.SetState(StateDone)

	view := bar.View()

	assert.Contains(t, view, "q: quit")
	assert.NotContains(t, view, "esc: cancel")
}

func TestStatusBar_ViewError(t *testing.T) {
	bar := NewBar(styles.Plain(), nil)
	bar.SetState(StateError)
	bar.SetMessage("list devices: 401 Unauthorized")

	assert.Contains(t, bar.View(), "Error: list devices: 401 Unauthorized")

	bar.SetMessage("")
	assert.Contains(t, bar.View(), "Error")
}

func TestStatusBar_ViewCancelling(t *testing.T) {
	bar := NewBar(styles.Plain(), nil)
	bar.SetState(StateCancelling)

	assert.Contains(t, bar.View(), "Cancelling")
}

func TestStatusBar_SetWidth(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)
	assert.Equal(t, 120, bar.Width())
}
