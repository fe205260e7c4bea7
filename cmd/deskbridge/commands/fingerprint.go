package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"deskbridge/internal/app"
	"deskbridge/internal/domain"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the account's public key fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if appCtx.Config.UserID == "" {
				return app.ErrNoUser
			}
			fp, err := appCtx.Keys.PublicFingerprint(domain.UserID(appCtx.Config.UserID))
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\n", fp)
			return nil
		},
	}
}
