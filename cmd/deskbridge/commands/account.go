package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"deskbridge/internal/domain"
)

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage local accounts",
	}
	cmd.AddCommand(accountCreateCmd(), accountListCmd())
	return cmd
}

func accountCreateCmd() *cobra.Command {
	var passphrase string
	cmd := &cobra.Command{
		Use:   "create <user-id>",
		Short: "Create an account and seal its key into the companion vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				passphrase = appCtx.Config.Passphrase()
			}
			account, err := appCtx.CreateAccount(domain.UserID(args[0]), passphrase)
			if err != nil {
				return err
			}
			fp, err := appCtx.Identity.Fingerprint(account.UserID, account.PublicKey)
			if err != nil {
				return err
			}
			fmt.Printf("Account %s created.\nFingerprint: %s\n", account.UserID, fp)
			return nil
		},
	}
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "vault passphrase (default from the configured environment variable)")
	return cmd
}

func accountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List local accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := appCtx.Accounts.ListAccounts()
			if err != nil {
				return err
			}
			for _, a := range accounts {
				fmt.Printf("%s\tcreated %s\n", a.UserID, time.Unix(a.CreatedUTC, 0).UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}
