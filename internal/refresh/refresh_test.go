package refresh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartrules/internal/cart"
)

type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []Message
}

func (b *recordingBroadcaster) Broadcast(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, m := range b.msgs {
		out = append(out, m.Type)
	}
	return out
}

type stubReader struct {
	snap cart.Snapshot
	err  error
}

func (r stubReader) Read(context.Context) (cart.Snapshot, error) { return r.snap, r.err }

type stubSuppressor struct {
	armed []time.Duration
}

func (s *stubSuppressor) ArmSuppression(d time.Duration) bool {
	s.armed = append(s.armed, d)
	return len(s.armed) == 1
}

func TestCoordinator_Refresh(t *testing.T) {
	out := &recordingBroadcaster{}
	sup := &stubSuppressor{}
	reader := stubReader{snap: cart.Snapshot{TotalMinor: 5000, ItemCount: 3}}

	c := NewCoordinator(reader, out, sup, 0)
	c.Refresh(context.Background())

	assert.Equal(t, []string{TypeRefresh, TypeUpdated, TypeCount}, out.types())
	require.NotNil(t, out.msgs[1].Cart)
	assert.Equal(t, int64(5000), out.msgs[1].Cart.TotalMinor)
	require.NotNil(t, out.msgs[2].ItemCount)
	assert.Equal(t, 3, *out.msgs[2].ItemCount)
	assert.Equal(t, []time.Duration{DefaultSuppressionWindow}, sup.armed)
}

func TestCoordinator_RefreshWithFailedReread(t *testing.T) {
	out := &recordingBroadcaster{}
	sup := &stubSuppressor{}

	c := NewCoordinator(stubReader{err: errors.New("offline")}, out, sup, 250*time.Millisecond)
	c.Refresh(context.Background())

	assert.Equal(t, []string{TypeRefresh}, out.types())
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, sup.armed)
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHub_BroadcastReachesHosts(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	count := 2
	hub.Broadcast(Message{Type: TypeCount, ItemCount: &count})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, TypeCount, got.Type)
	require.NotNil(t, got.ItemCount)
	assert.Equal(t, 2, *got.ItemCount)
}

func TestHub_ForwardsSignalFrames(t *testing.T) {
	hub := NewHub()
	received := make(chan string, 4)
	hub.SetSignalHandler(func(source string) { received <- source })

	conn := dialHub(t, hub)
	require.NoError(t, conn.WriteJSON(InboundFrame{Type: "hello"}))
	require.NoError(t, conn.WriteJSON(InboundFrame{Type: "signal", Source: "cart:updated"}))

	select {
	case src := <-received:
		assert.Equal(t, "cart:updated", src)
	case <-time.After(2 * time.Second):
		t.Fatal("signal frame was not forwarded")
	}
	assert.Empty(t, received)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	assert.Equal(t, 1, hub.Clients())

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	dialHub(t, hub)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	// Broadcasting with no hosts is a no-op.
	hub.Broadcast(Message{Type: TypeRefresh})
}
