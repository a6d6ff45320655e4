package dispatch

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atvremote/internal/atverr"
	"atvremote/internal/opack"
	"atvremote/internal/transport"
)

func pipePair(t *testing.T) (*transport.Connection, *transport.Connection) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	return transport.NewConnection(client, nil), transport.NewConnection(server, nil)
}

func TestSendCommandMatchesResponseByTransactionID(t *testing.T) {
	clientConn, serverConn := pipePair(t)
	client := New(clientConn)

	serverConn.SetListener(func(f transport.Frame) {
		if f.Type != transport.EOPACK {
			return
		}
		decoded, err := opack.Unpack(f.Payload)
		require.NoError(t, err)
		req := decoded.(*opack.Map)
		xid, _ := req.Get("_x")

		resp := opack.NewMap().
			Set("_i", "_systemInfo").
			Set("_t", MessageResponse).
			Set("_c", "ok").
			Set("_x", xid)
		_ = serverConn.Send(transport.EOPACK, opack.Pack(resp))
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	content, err := client.SendCommand(ctx, "_systemInfo", opack.NewMap())
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
}

func TestSendCommandTimesOut(t *testing.T) {
	clientConn, _ := pipePair(t)
	client := New(clientConn)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.SendCommand(ctx, "_systemInfo", opack.NewMap())
	require.Error(t, err)
	var timeoutErr *atverr.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestEventFanOutByIdentifier(t *testing.T) {
	clientConn, serverConn := pipePair(t)
	client := New(clientConn)

	received := make(chan interface{}, 1)
	client.OnEvent("_iMC", func(content interface{}) { received <- content })

	evt := opack.NewMap().
		Set("_i", "_iMC").
		Set("_t", MessageEvent).
		Set("_c", "focused").
		Set("_x", uint64(0))
	err := serverConn.Send(transport.EOPACK, opack.Pack(evt))
	require.NoError(t, err)

	select {
	case content := <-received:
		assert.Equal(t, "focused", content)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestExchangeAuthStartThenNextReplyMapping(t *testing.T) {
	clientConn, serverConn := pipePair(t)
	client := New(clientConn)

	serverConn.SetListener(func(f transport.Frame) {
		if f.Type == transport.PSStart {
			_ = serverConn.Send(transport.PSNext, []byte{0xAA})
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := client.ExchangeAuth(ctx, transport.PSStart, []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, reply)
}

func TestConnectionLostRejectsPending(t *testing.T) {
	clientConn, serverConn := pipePair(t)
	client := New(clientConn)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := client.SendCommand(ctx, "_systemInfo", opack.NewMap())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	serverConn.Close()
	clientConn.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, atverr.ErrConnectionLost)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ConnectionLost rejection")
	}
}

func TestSubscribeEventSendsInterest(t *testing.T) {
	clientConn, serverConn := pipePair(t)
	client := New(clientConn)

	received := make(chan *opack.Map, 1)
	serverConn.SetListener(func(f transport.Frame) {
		decoded, err := opack.Unpack(f.Payload)
		require.NoError(t, err)
		received <- decoded.(*opack.Map)
	})

	err := client.SubscribeEvent("_iMC")
	require.NoError(t, err)

	select {
	case msg := <-received:
		identifier, _ := msg.Get("_i")
		assert.Equal(t, "_interest", identifier)
		content, _ := msg.Get("_c")
		contentMap := content.(*opack.Map)
		regEvents, _ := contentMap.Get("_regEvents")
		assert.Equal(t, []interface{}{"_iMC"}, regEvents)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for _interest event")
	}
}
