package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show channel and biometrics status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			st, err := appCtx.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("App ID:      %s\n", st.AppID)
			fmt.Printf("Channel:     %s (paired: %t, outdated companion: %t)\n", st.State, st.Paired, st.OutdatedPeer)
			fmt.Printf("Biometrics:  %d\n", st.Biometrics)
			fmt.Printf("Account:     %s\n", st.Auth)
			return nil
		},
	}
}
