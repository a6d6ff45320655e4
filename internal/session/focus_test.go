package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"atvremote/internal/opack"
)

func TestWatchFocusReportsTransitionToFocused(t *testing.T) {
	fc := newFakeCommander()
	fc.responses["_tiStart"] = opack.NewMap().Set("_tiD", []byte{0x01, 0x02})

	s := New(fc, []byte{0x01}, "client", "model")
	transitions := make(chan FocusState, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.WatchFocus(ctx, func(fs FocusState) { transitions <- fs })

	select {
	case got := <-transitions:
		assert.Equal(t, FocusFocused, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for focus transition")
	}
	assert.Equal(t, FocusFocused, s.FocusState())
	s.Close()
}

func TestWatchFocusReportsUnfocusedWhenTiDAbsent(t *testing.T) {
	fc := newFakeCommander()
	s := New(fc, []byte{0x01}, "client", "model")
	transitions := make(chan FocusState, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.WatchFocus(ctx, func(fs FocusState) { transitions <- fs })

	select {
	case got := <-transitions:
		assert.Equal(t, FocusUnfocused, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for focus transition")
	}
	assert.Equal(t, FocusUnfocused, s.FocusState())
	s.Close()
}

func TestCloseStopsFocusLoop(t *testing.T) {
	fc := newFakeCommander()
	s := New(fc, []byte{0x01}, "client", "model")
	ctx := context.Background()

	s.WatchFocus(ctx, func(FocusState) {})
	s.Close()
	time.Sleep(1100 * time.Millisecond)

	callsAfterClose := len(fc.commandIdentifiers())
	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, callsAfterClose, len(fc.commandIdentifiers()))
}
