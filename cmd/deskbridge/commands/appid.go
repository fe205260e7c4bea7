package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func appIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "app-id",
		Short: "Print this install's application id",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(appCtx.Channel.AppID())
			return nil
		},
	}
}
