package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, opts ...Option) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, cancel
}

func testClient(t *testing.T, h *Hub, buffer int) *Client {
	t.Helper()
	c := &Client{hub: h, send: make(chan Message, buffer)}
	require.True(t, h.add(c))
	return c
}

func recv(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case m, ok := <-c.send:
		return m, ok
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}, false
	}
}

func TestHub_Broadcast(t *testing.T) {
	h, _ := startHub(t)
	a := testClient(t, h, 4)
	b := testClient(t, h, 4)
	assert.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]string{"mode": "variant-a"}))
	h.BroadcastBinary([]byte{0xFF, 0xD8})

	for _, c := range []*Client{a, b} {
		m, ok := recv(t, c)
		require.True(t, ok)
		assert.False(t, m.Binary)
		assert.JSONEq(t, `{"mode":"variant-a"}`, string(m.Data))

		m, ok = recv(t, c)
		require.True(t, ok)
		assert.True(t, m.Binary)
		assert.Equal(t, []byte{0xFF, 0xD8}, m.Data)
	}
}

func TestHub_RetainReplaysLast(t *testing.T) {
	h, _ := startHub(t, WithRetain())
	first := testClient(t, h, 4)

	h.BroadcastBinary([]byte("one"))
	h.BroadcastBinary([]byte("two"))
	recv(t, first)
	recv(t, first)

	late := testClient(t, h, 4)
	m, ok := recv(t, late)
	require.True(t, ok)
	assert.Equal(t, "two", string(m.Data))
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := startHub(t)
	slow := testClient(t, h, 1)
	fast := testClient(t, h, 8)

	for i := 0; i < 3; i++ {
		h.BroadcastBinary([]byte{byte(i)})
	}
	for i := 0; i < 3; i++ {
		recv(t, fast)
	}

	_, ok := recv(t, slow)
	assert.True(t, ok, "first message delivered")
	_, ok = recv(t, slow)
	assert.False(t, ok, "slow client channel closed")
	assert.Equal(t, 1, h.ClientCount())
}

func TestHub_Unregister(t *testing.T) {
	h, _ := startHub(t)
	c := testClient(t, h, 1)

	h.remove(c)
	_, ok := recv(t, c)
	assert.False(t, ok)
	assert.Zero(t, h.ClientCount())

	// Removing twice is harmless.
	h.remove(c)
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := startHub(t)
	c := testClient(t, h, 1)
	assert.True(t, h.IsRunning())

	cancel()
	<-h.Done()

	_, ok := recv(t, c)
	assert.False(t, ok)
	assert.False(t, h.IsRunning())
	assert.False(t, h.add(&Client{hub: h, send: make(chan Message, 1)}))
}
