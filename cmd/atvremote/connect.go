package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"atvremote"
	"atvremote/internal/config"
	"atvremote/internal/device"
)

var credentialsFlag string

func addCredentialsFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&credentialsFlag, "credentials", "", "credentials string produced by pair")
	_ = cmd.MarkFlagRequired("credentials")
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Verify pairing and run the post-connect sequence, then exit",
	RunE:  runConnect,
}

func init() {
	addCredentialsFlag(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	client, _, err := dialAndConnect()
	if err != nil {
		return err
	}
	defer client.Disconnect()
	fmt.Println("connected")
	return nil
}

// dialAndConnect loads settings, parses --credentials, and Connects to
// the device named by the persistent flags. Shared by every subcommand
// that needs a live session.
func dialAndConnect() (*atvremote.Client, device.Device, error) {
	dev := currentDevice()
	settings, err := config.Load(configFile)
	if err != nil {
		return nil, dev, err
	}
	creds, err := device.ParseCredentials(credentialsFlag)
	if err != nil {
		return nil, dev, err
	}
	client := atvremote.New(settings)
	ctx := context.Background()
	if err := client.Connect(ctx, dev, creds); err != nil {
		return nil, dev, err
	}
	return client, dev, nil
}
