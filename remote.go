package atvremote

import (
	"context"

	"atvremote/internal/session"
)

// SendKey presses one HID remote-control button on the connected
// device. Requires a prior successful Connect.
func (c *Client) SendKey(ctx context.Context, cmd session.HIDCommand, longPress bool) error {
	sess, err := c.activeSession()
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return sess.PressKey(ctx, cmd, longPress)
}

// SendMediaCommand issues a media-control command, e.g. Play/Pause.
// volume is only meaningful for session.SetVolume.
func (c *Client) SendMediaCommand(ctx context.Context, cmd session.MediaCommand, volume float64) error {
	sess, err := c.activeSession()
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return sess.SendMediaCommand(ctx, cmd, volume)
}

// GetText reads the connected device's current focused text field
// without modifying it.
func (c *Client) GetText(ctx context.Context) (string, error) {
	sess, err := c.activeSession()
	if err != nil {
		return "", err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return sess.TextInputCommand(ctx, "", false)
}

// SetText appends text to the connected device's focused text field,
// first clearing any existing text if clearExisting is set, and
// returns the client-predicted resulting text.
func (c *Client) SetText(ctx context.Context, text string, clearExisting bool) (string, error) {
	sess, err := c.activeSession()
	if err != nil {
		return "", err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return sess.TextInputCommand(ctx, text, clearExisting)
}

// WatchFocus registers onChange to be called whenever the connected
// device's text-input focus state transitions. Runs until ctx is
// cancelled or Disconnect is called.
func (c *Client) WatchFocus(ctx context.Context, onChange func(session.FocusState)) error {
	sess, err := c.activeSession()
	if err != nil {
		return err
	}
	sess.WatchFocus(ctx, onChange)
	return nil
}
