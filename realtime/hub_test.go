package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc, <-chan error) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- hub.Run(ctx) }()
	t.Cleanup(cancel)
	return hub, cancel, errc
}

func TestHub_BroadcastToRoom(t *testing.T) {
	hub, _, _ := startHub(t)

	alice := hub.NewClient(nil, "team_1", "alice")
	bob := hub.NewClient(nil, "team_1", "bob")
	other := hub.NewClient(nil, "team_2", "carol")
	for _, c := range []*Client{alice, bob, other} {
		require.True(t, hub.Join(c))
	}
	require.Eventually(t, func() bool { return hub.RoomSize("team_1") == 2 }, time.Second, 5*time.Millisecond)

	hub.BroadcastToRoom("team_1", map[string]string{"type": "MEMBER_JOINED"})

	for _, c := range []*Client{alice, bob} {
		select {
		case msg := <-c.Send:
			var decoded map[string]string
			require.NoError(t, json.Unmarshal(msg, &decoded))
			assert.Equal(t, "MEMBER_JOINED", decoded["type"])
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive the message", c.UserID)
		}
	}
	assert.Empty(t, other.Send)
}

func TestHub_LeaveClosesClient(t *testing.T) {
	hub, _, _ := startHub(t)

	c := hub.NewClient(nil, "team_1", "alice")
	require.True(t, hub.Join(c))
	require.Eventually(t, func() bool { return hub.RoomSize("team_1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Leave(c)
	require.Eventually(t, func() bool { return hub.RoomSize("team_1") == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-c.Send
	assert.False(t, ok, "send channel is closed")

	// Сообщения в пустую комнату просто отбрасываются.
	hub.BroadcastToRoom("team_1", "ignored")
}

func TestHub_StopsOnContextCancel(t *testing.T) {
	hub, cancel, errc := startHub(t)

	c := hub.NewClient(nil, "team_1", "alice")
	require.True(t, hub.Join(c))

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	_, ok := <-c.Send
	assert.False(t, ok)
	assert.False(t, hub.Join(hub.NewClient(nil, "team_1", "late")))
	hub.Leave(c)
}

func TestHub_BroadcastToUsers(t *testing.T) {
	hub, _, _ := startHub(t)

	admin := hub.NewClient(nil, "team_1", "u1")
	member := hub.NewClient(nil, "team_1", "u2")
	for _, c := range []*Client{admin, member} {
		require.True(t, hub.Join(c))
	}
	require.Eventually(t, func() bool { return hub.RoomSize("team_1") == 2 }, time.Second, 5*time.Millisecond)

	hub.BroadcastToUsers("team_1", []string{"u1"}, map[string]string{"type": "MEMBER_JOINED"})

	select {
	case <-admin.Send:
	case <-time.After(time.Second):
		t.Fatal("admin did not receive the message")
	}
	assert.Empty(t, member.Send)
}

func TestHub_KickUser(t *testing.T) {
	hub, _, _ := startHub(t)

	first := hub.NewClient(nil, "team_1", "u2")
	second := hub.NewClient(nil, "team_1", "u2")
	other := hub.NewClient(nil, "team_1", "u3")
	for _, c := range []*Client{first, second, other} {
		require.True(t, hub.Join(c))
	}
	require.Eventually(t, func() bool { return hub.RoomSize("team_1") == 3 }, time.Second, 5*time.Millisecond)

	hub.BroadcastToUsers("team_1", []string{"u2"}, "rejected")
	hub.KickUser("team_1", "u2")
	assert.Equal(t, 1, hub.RoomSize("team_1"))

	// Сообщение, поставленное в очередь до отключения, всё ещё доставляется.
	msg, ok := <-first.Send
	require.True(t, ok)
	assert.JSONEq(t, `"rejected"`, string(msg))
	_, ok = <-first.Send
	assert.False(t, ok)

	hub.BroadcastToRoom("team_1", "after")
	assert.Len(t, other.Send, 1)
	assert.Empty(t, second.Send)

	hub.Leave(first)
}

func TestHub_CloseRoom(t *testing.T) {
	hub, _, _ := startHub(t)

	c := hub.NewClient(nil, "team_1", "u1")
	require.True(t, hub.Join(c))
	require.Eventually(t, func() bool { return hub.RoomSize("team_1") == 1 }, time.Second, 5*time.Millisecond)

	hub.CloseRoom("team_1")
	assert.Equal(t, 0, hub.RoomSize("team_1"))
	_, ok := <-c.Send
	assert.False(t, ok)
}
