package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"atvremote/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print text-input focus transitions until interrupted",
	RunE:  runWatch,
}

func init() {
	addCredentialsFlag(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, _, err := dialAndConnect()
	if err != nil {
		return err
	}
	defer client.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.WatchFocus(ctx, func(fs session.FocusState) {
		fmt.Println(fs.String())
	}); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	return nil
}
