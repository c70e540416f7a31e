package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirectToLoginSkipsWhenAlreadyThere(t *testing.T) {
	n := New(LoginPath)
	events, cancel := n.Subscribe()
	defer cancel()

	assert.False(t, n.RedirectToLogin())
	assert.Empty(t, events)
}

func TestRedirectToLoginNotifiesSubscribers(t *testing.T) {
	n := New("/dashboard")
	events, cancel := n.Subscribe()
	defer cancel()

	require.True(t, n.RedirectToLogin())
	assert.Equal(t, LoginPath, n.Location())
	assert.Equal(t, LoginPath, <-events)

	assert.False(t, n.RedirectToLogin())
}

func TestSetLocationDoesNotNotify(t *testing.T) {
	n := New("/")
	events, cancel := n.Subscribe()
	defer cancel()

	n.SetLocation("/logs")
	assert.Equal(t, "/logs", n.Location())
	assert.Empty(t, events)
}

func TestCancelClosesChannel(t *testing.T) {
	n := New("/")
	events, cancel := n.Subscribe()
	cancel()
	cancel()

	_, open := <-events
	assert.False(t, open)

	n.Navigate("/nodes")
}

func TestNavigateDropsForFullSubscriber(t *testing.T) {
	n := New("/")
	_, cancel := n.Subscribe()
	defer cancel()

	for i := 0; i < 10; i++ {
		n.Navigate("/logs")
	}
	assert.Equal(t, "/logs", n.Location())
}
