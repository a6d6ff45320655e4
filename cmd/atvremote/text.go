package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	textValue     string
	clearExisting bool
)

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Read or write the device's focused text field",
	RunE:  runText,
}

func init() {
	addCredentialsFlag(textCmd)
	textCmd.Flags().StringVar(&textValue, "set", "", "text to append to the focused field")
	textCmd.Flags().BoolVar(&clearExisting, "clear", false, "clear existing text before appending")
}

func runText(cmd *cobra.Command, args []string) error {
	client, _, err := dialAndConnect()
	if err != nil {
		return err
	}
	defer client.Disconnect()

	ctx := context.Background()
	if textValue == "" && !clearExisting {
		got, err := client.GetText(ctx)
		if err != nil {
			return err
		}
		fmt.Println(got)
		return nil
	}

	got, err := client.SetText(ctx, textValue, clearExisting)
	if err != nil {
		return err
	}
	fmt.Println(got)
	return nil
}
