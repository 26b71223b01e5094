package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayStub struct {
	server *httptest.Server
	sends  chan []byte
	recv   chan []byte
}

func newGatewayStub(t *testing.T) *gatewayStub {
	t.Helper()

	g := &gatewayStub{
		sends: make(chan []byte, 16),
		recv:  make(chan []byte, 16),
	}

	upgrader := websocket.Upgrader{}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		go func() {
			for payload := range g.sends {
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			g.recv <- msg
		}
	}))
	t.Cleanup(g.server.Close)

	return g
}

func (g *gatewayStub) url() string {
	return "ws" + strings.TrimPrefix(g.server.URL, "http")
}

func (g *gatewayStub) control(t *testing.T) map[string]any {
	t.Helper()

	select {
	case msg := <-g.recv:
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(msg, &decoded))
		return decoded
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for control message")
		return nil
	}
}

func TestClient_DeliversMessages(t *testing.T) {
	gateway := newGatewayStub(t)
	client := NewClient(gateway.url())

	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	gateway.sends <- []byte(`{"type":"trade","contractId":"CON.F.US.MNQ.U25"}`)

	select {
	case msg := <-client.Messages():
		assert.JSONEq(t, `{"type":"trade","contractId":"CON.F.US.MNQ.U25"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestClient_SubscribeSendsControlFrame(t *testing.T) {
	gateway := newGatewayStub(t)
	client := NewClient(gateway.url())

	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	require.NoError(t, client.Subscribe(context.Background(), []string{"CON.F.US.MNQ.U25", "CON.F.US.ES.U25"}))

	frame := gateway.control(t)
	assert.Equal(t, "subscribe", frame["method"])
	assert.Equal(t, []any{"CON.F.US.MNQ.U25", "CON.F.US.ES.U25"}, frame["contractIds"])
}

func TestClient_RequestDepthSnapshot(t *testing.T) {
	gateway := newGatewayStub(t)
	client := NewClient(gateway.url())

	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	require.NoError(t, client.RequestDepthSnapshot(context.Background(), "CON.F.US.MNQ.U25"))

	frame := gateway.control(t)
	assert.Equal(t, "depthSnapshot", frame["method"])
	assert.Equal(t, "CON.F.US.MNQ.U25", frame["contractId"])
}

func TestClient_WriteBeforeConnectFails(t *testing.T) {
	client := NewClient("ws://127.0.0.1:0")

	err := client.Subscribe(context.Background(), []string{"CON.F.US.MNQ.U25"})
	assert.Error(t, err)
}

func TestClient_CloseClosesMessageChannel(t *testing.T) {
	gateway := newGatewayStub(t)
	client := NewClient(gateway.url())

	require.NoError(t, client.Connect(context.Background()))
	messages := client.Messages()

	require.NoError(t, client.Close())

	select {
	case _, ok := <-messages:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("message channel not closed")
	}
}

func TestClient_CloseBeforeConnect(t *testing.T) {
	client := NewClient("ws://127.0.0.1:0")
	assert.NoError(t, client.Close())
}
