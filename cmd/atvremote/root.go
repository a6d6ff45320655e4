// Package main implements the atvremote command-line client: a thin
// cobra port of the teacher's one-shot cmd/debug_* tools onto a
// subcommand tree (pair, connect, sendkey, text, watch). Every
// subcommand's RunE is a handful of calls into the root atvremote
// façade package; no protocol logic lives here.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile    string
	host          string
	airplayPort   int
	companionPort int
	model         string
)

var rootCmd = &cobra.Command{
	Use:     "atvremote",
	Short:   "Pair with and drive an Apple TV over AirPlay/Companion",
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "device address")
	rootCmd.PersistentFlags().IntVar(&airplayPort, "airplay-port", 7000, "device AirPlay port")
	rootCmd.PersistentFlags().IntVar(&companionPort, "companion-port", 49152, "device Companion port")
	rootCmd.PersistentFlags().StringVar(&model, "model", "AppleTV", "device model string sent in _systemInfo")

	rootCmd.AddCommand(pairCmd, connectCmd, sendKeyCmd, textCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
