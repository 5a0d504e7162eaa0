package browse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_Load(t *testing.T) {
	page := NewPage([]string{})

	_, _, loaded := page.Snapshot()
	assert.False(t, loaded)

	got, err := page.Load(t.Context(), "apps", func(context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	data, banner, loaded := page.Snapshot()
	assert.Equal(t, []string{"a", "b"}, data)
	assert.Empty(t, banner)
	assert.True(t, loaded)
	assert.Equal(t, "apps", page.Route())
}

func TestPage_FailureResetsToEmpty(t *testing.T) {
	page := NewPage([]string{})
	_, err := page.Load(t.Context(), "apps", func(context.Context) ([]string, error) {
		return []string{"a"}, nil
	})
	require.NoError(t, err)

	boom := errors.New("unexpected status 500")
	_, err = page.Load(t.Context(), "apps", func(context.Context) ([]string, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	data, banner, loaded := page.Snapshot()
	assert.NotNil(t, data)
	assert.Empty(t, data)
	assert.Equal(t, "unexpected status 500", banner)
	assert.True(t, loaded)

	// a later successful load clears the banner
	_, err = page.Load(t.Context(), "apps", func(context.Context) ([]string, error) {
		return []string{"c"}, nil
	})
	require.NoError(t, err)
	_, banner, _ = page.Snapshot()
	assert.Empty(t, banner)
}

func TestPage_StaleLoadIsDiscarded(t *testing.T) {
	page := NewPage("")

	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})
	slowDone := make(chan error, 1)

	go func() {
		_, err := page.Load(t.Context(), "perms/1", func(context.Context) (string, error) {
			close(slowStarted)
			<-releaseSlow
			return "permission 1", nil
		})
		slowDone <- err
	}()

	<-slowStarted
	got, err := page.Load(t.Context(), "perms/2", func(context.Context) (string, error) {
		return "permission 2", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "permission 2", got)

	close(releaseSlow)
	assert.ErrorIs(t, <-slowDone, ErrSuperseded)

	data, _, _ := page.Snapshot()
	assert.Equal(t, "permission 2", data)
	assert.Equal(t, "perms/2", page.Route())
}
