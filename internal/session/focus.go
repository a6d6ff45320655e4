package session

import (
	"context"
	"time"

	"atvremote/internal/opack"
)

// FocusState describes whether the text-input field is currently
// focused on the device. Unknown is the state before the first poll.
type FocusState int

const (
	FocusUnknown FocusState = iota
	FocusUnfocused
	FocusFocused
)

func (f FocusState) String() string {
	switch f {
	case FocusFocused:
		return "Focused"
	case FocusUnfocused:
		return "Unfocused"
	default:
		return "Unknown"
	}
}

const focusPollInterval = time.Second

// WatchFocus polls _tiStart at a fixed interval (nominally 1000ms,
// since the peer does not reliably push focus transitions) and
// invokes onChange whenever the observed state changes. Runs until
// ctx is cancelled or Close is called; safe to call at most once per
// Session.
func (s *Session) WatchFocus(ctx context.Context, onChange func(FocusState)) {
	s.focusMu.Lock()
	s.focusCallback = onChange
	s.focusMu.Unlock()

	go s.focusLoop(ctx)
}

func (s *Session) focusLoop(ctx context.Context) {
	ticker := time.NewTicker(focusPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.pollFocusOnce(ctx)
		}
	}
}

func (s *Session) pollFocusOnce(ctx context.Context) {
	resp, err := s.d.SendCommand(ctx, "_tiStart", opack.NewMap())
	if err != nil {
		return
	}
	observed := FocusUnfocused
	if content, ok := resp.(*opack.Map); ok {
		if tiD, ok := content.Get("_tiD"); ok {
			if b, ok := tiD.([]byte); ok && len(b) > 0 {
				observed = FocusFocused
			}
		}
	}
	s.setFocusState(observed)
}

func (s *Session) setFocusState(observed FocusState) {
	s.focusMu.Lock()
	prev := s.focusState
	s.focusState = observed
	cb := s.focusCallback
	s.focusMu.Unlock()

	if observed != prev && cb != nil {
		cb(observed)
	}
}

// FocusState returns the most recently observed focus state.
func (s *Session) FocusState() FocusState {
	s.focusMu.RLock()
	defer s.focusMu.RUnlock()
	return s.focusState
}
