package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"atvremote/internal/atverr"
	"atvremote/internal/session"
)

var hidCommandsByName = map[string]session.HIDCommand{
	"up": session.Up, "down": session.Down, "left": session.Left, "right": session.Right,
	"menu": session.Menu, "select": session.Select, "home": session.Home,
	"volumeup": session.VolumeUp, "volumedown": session.VolumeDown,
	"siri": session.Siri, "screensaver": session.Screensaver,
	"sleep": session.Sleep, "wake": session.Wake, "playpause": session.PlayPause,
	"channelincrement": session.ChannelIncrement, "channeldecrement": session.ChannelDecrement,
	"guide": session.Guide, "pageup": session.PageUp, "pagedown": session.PageDown,
}

var longPress bool

var sendKeyCmd = &cobra.Command{
	Use:   "sendkey <button>",
	Short: "Press one HID remote button, e.g. up/down/select/menu/playpause",
	Args:  cobra.ExactArgs(1),
	RunE:  runSendKey,
}

func init() {
	addCredentialsFlag(sendKeyCmd)
	sendKeyCmd.Flags().BoolVar(&longPress, "long", false, "hold the button for 1s before releasing")
}

func runSendKey(cmd *cobra.Command, args []string) error {
	button, ok := hidCommandsByName[strings.ToLower(args[0])]
	if !ok {
		return atverr.Protocol("unknown button: " + args[0])
	}

	client, _, err := dialAndConnect()
	if err != nil {
		return err
	}
	defer client.Disconnect()

	if err := client.SendKey(context.Background(), button, longPress); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}
