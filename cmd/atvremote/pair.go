package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"atvremote"
	"atvremote/internal/config"
	"atvremote/internal/device"
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair with a device: request an on-screen PIN, then redeem it",
	RunE:  runPair,
}

var pairPIN string

func init() {
	pairCmd.Flags().StringVar(&pairPIN, "pin", "", "PIN displayed on the device; omit to request one")
}

func runPair(cmd *cobra.Command, args []string) error {
	dev := currentDevice()
	settings, err := config.Load(configFile)
	if err != nil {
		return err
	}
	client := atvremote.New(settings)
	ctx := context.Background()

	if pairPIN == "" {
		if err := client.PairStart(ctx, dev); err != nil {
			return err
		}
		fmt.Println("PIN requested; re-run with --pin <code from device screen>")
		return nil
	}

	creds, err := client.PairFinish(ctx, dev, pairPIN)
	if err != nil {
		return err
	}
	fmt.Println(creds.String())
	return nil
}

func currentDevice() device.Device {
	return device.Device{
		Address:       host,
		AirPlayPort:   uint16(airplayPort),
		CompanionPort: uint16(companionPort),
		Model:         model,
	}
}
