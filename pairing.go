package atvremote

import (
	"context"

	"atvremote/internal/device"
	"atvremote/internal/pairing"
	"atvremote/internal/pairing/airplay"
)

// PairStart asks dev to display an on-screen PIN. Call PairFinish with
// the PIN the user reads off the screen to complete pairing.
func (c *Client) PairStart(ctx context.Context, dev device.Device) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	carrier := airplay.New(dev.Address, int(dev.AirPlayPort))
	return carrier.StartPIN(ctx)
}

// PairFinish runs HAP pair-setup over dev's AirPlay port using pin,
// and returns the long-term credentials to persist. Pairing itself
// always happens over AirPlay; a later Connect re-verifies those
// credentials over the Companion framed transport.
func (c *Client) PairFinish(ctx context.Context, dev device.Device, pin string) (*device.Credentials, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	carrier := airplay.New(dev.Address, int(dev.AirPlayPort))
	return pairing.PairSetup(ctx, carrier, pin, c.settings.DisplayName)
}
