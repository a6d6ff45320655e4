package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atvremote/internal/opack"
)

func TestStartIssuesStrictPostConnectOrder(t *testing.T) {
	fc := newFakeCommander()
	s := New(fc, []byte{0x01, 0x02}, "test-client", "test-model")

	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, []string{"_systemInfo", "_touchStart", "_sessionStart", "_tiStart"}, fc.commandIdentifiers())
	assert.Equal(t, []string{"_iMC"}, fc.subscribed)
}

func TestStartTouchStartUsesForcedFloatDimensions(t *testing.T) {
	fc := newFakeCommander()
	s := New(fc, []byte{0x01}, "client", "model")
	require.NoError(t, s.Start(context.Background()))

	touchStart := fc.commandCalls[1].content.(*opack.Map)
	width, _ := touchStart.Get("_width")
	height, _ := touchStart.Get("_height")
	assert.Equal(t, opack.ForcedFloat64(1000.0), width)
	assert.Equal(t, opack.ForcedFloat64(1000.0), height)
}

func TestPressKeySendsDownThenUp(t *testing.T) {
	fc := newFakeCommander()
	s := New(fc, []byte{0x01}, "client", "model")

	require.NoError(t, s.PressKey(context.Background(), Select, false))

	require.Len(t, fc.commandCalls, 2)
	down := fc.commandCalls[0].content.(*opack.Map)
	up := fc.commandCalls[1].content.(*opack.Map)
	downState, _ := down.Get("_hBtS")
	upState, _ := up.Get("_hBtS")
	assert.Equal(t, uint64(hidButtonDown), downState)
	assert.Equal(t, uint64(hidButtonUp), upState)
	cmd, _ := down.Get("_hidC")
	assert.Equal(t, uint64(Select), cmd)
}

func TestPressKeyLongPressWaitsBetweenDownAndUp(t *testing.T) {
	fc := newFakeCommander()
	s := New(fc, []byte{0x01}, "client", "model")

	start := time.Now()
	require.NoError(t, s.PressKey(context.Background(), Home, true))
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestSendMediaCommandSetVolumeIncludesVol(t *testing.T) {
	fc := newFakeCommander()
	s := New(fc, []byte{0x01}, "client", "model")

	require.NoError(t, s.SendMediaCommand(context.Background(), SetVolume, 0.5))

	content := fc.commandCalls[0].content.(*opack.Map)
	mcc, _ := content.Get("_mcc")
	vol, _ := content.Get("_vol")
	assert.Equal(t, uint64(SetVolume), mcc)
	assert.Equal(t, opack.ForcedFloat64(0.5), vol)
}

func TestSendMediaCommandPlayOmitsVol(t *testing.T) {
	fc := newFakeCommander()
	s := New(fc, []byte{0x01}, "client", "model")

	require.NoError(t, s.SendMediaCommand(context.Background(), Play, 0))

	content := fc.commandCalls[0].content.(*opack.Map)
	_, hasVol := content.Get("_vol")
	assert.False(t, hasVol)
}
