// Package session implements the Companion session layer that runs
// above a verified dispatcher: the mandatory post-connect command
// sequence, remote/media key presses, text input, and focus polling.
//
// Grounded on internal/podstate's PodStateCoordinator: the same
// RWMutex-guarded callback and stopChan-gated background loop idiom
// drives WatchFocus here (one registered callback rather than a
// slice), generalized from a BLE poll loop to a Companion _tiStart
// poll.
package session

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"atvremote/internal/atverr"
	"atvremote/internal/opack"
)

// commander is the subset of *dispatch.Dispatcher the session layer
// needs; kept narrow so session tests can supply a fake.
type commander interface {
	SendCommand(ctx context.Context, identifier string, content interface{}) (interface{}, error)
	SendEvent(identifier string, content interface{}) error
	SubscribeEvent(name string) error
}

// Session drives one verified Companion connection through its
// mandatory startup sequence and exposes the remote-control, media,
// and text-input operations available afterward.
type Session struct {
	d commander

	clientID    []byte
	displayName string
	model       string

	focusMu       sync.RWMutex
	focusState    FocusState
	focusCallback func(FocusState)
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// New returns a Session bound to d. Call Start once pair-verify has
// installed the connection's session keys.
func New(d commander, clientID []byte, displayName, model string) *Session {
	return &Session{
		d:           d,
		clientID:    clientID,
		displayName: displayName,
		model:       model,
		focusState:  FocusUnknown,
		stopChan:    make(chan struct{}),
	}
}

// Start issues the mandatory post-connect sequence in order:
// _systemInfo, _touchStart, _sessionStart, _tiStart, then subscribes
// to _iMC. The peer rejects commands issued out of this order.
func (s *Session) Start(ctx context.Context) error {
	systemInfo := opack.NewMap().
		Set("_idsID", s.clientID).
		Set("_deviceID", s.clientID).
		Set("_sv", "170.18").
		Set("_bf", uint64(0)).
		Set("_etsk", "").
		Set("_pubID", s.model).
		Set("name", s.displayName)
	if _, err := s.d.SendCommand(ctx, "_systemInfo", systemInfo); err != nil {
		return err
	}

	touchStart := opack.NewMap().
		Set("_width", opack.ForcedFloat64(1000.0)).
		Set("_height", opack.ForcedFloat64(1000.0)).
		Set("_tFl", uint64(0))
	if _, err := s.d.SendCommand(ctx, "_touchStart", touchStart); err != nil {
		return err
	}

	sid, err := randomUint32()
	if err != nil {
		return atverr.Crypto("session_id", err)
	}
	sessionStart := opack.NewMap().
		Set("_srvT", "com.apple.tvremoteservices").
		Set("_sid", uint64(sid))
	if _, err := s.d.SendCommand(ctx, "_sessionStart", sessionStart); err != nil {
		return err
	}

	if _, err := s.d.SendCommand(ctx, "_tiStart", opack.NewMap()); err != nil {
		return err
	}

	return s.d.SubscribeEvent("_iMC")
}

func randomUint32() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// PressKey sends one HID button press: a down event immediately
// followed by an up event. A long press inserts a 1000ms delay
// between them.
func (s *Session) PressKey(ctx context.Context, cmd HIDCommand, longPress bool) error {
	down := opack.NewMap().Set("_hBtS", uint64(hidButtonDown)).Set("_hidC", uint64(cmd))
	if _, err := s.d.SendCommand(ctx, "_hidC", down); err != nil {
		return err
	}
	if longPress {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	up := opack.NewMap().Set("_hBtS", uint64(hidButtonUp)).Set("_hidC", uint64(cmd))
	_, err := s.d.SendCommand(ctx, "_hidC", up)
	return err
}

// SendMediaCommand issues a media-control command, e.g. Play/Pause/
// SkipBy. For SetVolume, pass the target level 0-1 via volume; it is
// ignored for every other code.
func (s *Session) SendMediaCommand(ctx context.Context, cmd MediaCommand, volume float64) error {
	content := opack.NewMap().Set("_mcc", uint64(cmd))
	if cmd == SetVolume {
		content.Set("_vol", opack.ForcedFloat64(volume))
	}
	_, err := s.d.SendCommand(ctx, "_mcc", content)
	return err
}

// Close stops the focus-watching loop, if running.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}
