// Package airplay implements the AirPlay HTTP carrier for HAP
// pair-setup: the same state machine in internal/pairing runs over
// this carrier unmodified, driving the device's AirPlay port instead
// of the framed Companion transport.
package airplay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"atvremote/internal/atverr"
)

const (
	userAgent  = "AirPlay/320.20"
	hkpVersion = "3"
)

// Carrier implements pairing.Carrier over the device's AirPlay HTTP
// endpoints, reusing a single keep-alive connection for the whole
// handshake.
type Carrier struct {
	baseURL string
	client  *http.Client
}

// New returns a Carrier targeting host:port's AirPlay HTTP server.
func New(host string, port int) *Carrier {
	return &Carrier{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		client: &http.Client{
			Transport: &http.Transport{
				DisableCompression: true,
			},
		},
	}
}

// StartPIN requests the device display an on-screen PIN, via an empty
// POST to /pair-pin-start. Must be called once before PairSetup when
// the device requires a freshly-generated PIN rather than a static one.
func (c *Carrier) StartPIN(ctx context.Context) error {
	_, err := c.post(ctx, "/pair-pin-start", nil)
	return err
}

// SendPairSetup posts one raw TLV8 pair-setup request body to
// /pair-setup and returns the raw TLV8 response body.
func (c *Carrier) SendPairSetup(ctx context.Context, tlv []byte) ([]byte, error) {
	return c.post(ctx, "/pair-setup", tlv)
}

// SendPairVerify always fails: the AirPlay HTTP carrier only fronts
// pair-setup. Every session, including ones first paired over AirPlay,
// re-verifies over the Companion framed transport.
func (c *Carrier) SendPairVerify(ctx context.Context, tlv []byte) ([]byte, error) {
	return nil, atverr.Protocol("airplay carrier does not support pair-verify")
}

func (c *Carrier) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, atverr.Transport("airplay_build_request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Apple-HKP", hkpVersion)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, atverr.Transport("airplay_post_"+path, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, atverr.Transport("airplay_read_response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, atverr.Transport("airplay_status", fmt.Errorf("%s: %s", path, resp.Status))
	}
	return out, nil
}
