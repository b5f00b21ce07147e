package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	pkgAuth "github.com/angelmondragon/retailops-backend/pkg/auth"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

func newTokenCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage staff access tokens",
	}
	cmd.AddCommand(newMintCmd(d))
	return cmd
}

func newMintCmd(d deps) *cobra.Command {
	var userID, role string
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a signed access token for a staff member",
		Example: `  opsctl token mint --user 6f1c0e5e-7f5a-4b8e-9d7a-1f3b2f0a9c11 --role cashier`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			actorRole, err := enums.ParseActorRole(role)
			if err != nil {
				return err
			}
			cfg, err := d.loadConfig()
			if err != nil {
				return err
			}
			token, err := pkgAuth.MintAccessToken(cfg.JWT, d.now(), pkgAuth.AccessTokenPayload{
				UserID: id,
				Role:   actorRole,
			})
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "staff user id (uuid)")
	cmd.Flags().StringVar(&role, "role", string(enums.ActorRoleCashier), "actor role")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
