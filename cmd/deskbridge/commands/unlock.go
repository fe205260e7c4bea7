package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func unlockCmd() *cobra.Command {
	var perUser bool
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Unlock the account with the companion's biometrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			unlock := appCtx.Unlock
			if perUser {
				unlock = appCtx.UnlockForUser
			}
			status, err := unlock(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Account is %s\n", status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&perUser, "per-user", false, "use unlockWithBiometricsForUser instead of the legacy command")
	return cmd
}
