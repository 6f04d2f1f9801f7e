package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/homeowner/portal/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the roles and the administrator account",
	Long: `Ensures the Admin, Staff and HomeOwner roles exist and creates the administrator
described by ADMIN_USERNAME and ADMIN_PASSWORD. Existing accounts are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Admin.Password == "" {
			return errors.New("ADMIN_PASSWORD is required to seed the administrator")
		}

		ctx := context.Background()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		created, err := seedAdmin(ctx, newRepositories(db, nil).userService())
		if err != nil {
			return err
		}

		log := logger.Component("seed")
		if created {
			log.Info().Str("username", cfg.Admin.Username).Msg("administrator account created")
		} else {
			log.Info().Str("username", cfg.Admin.Username).Msg("administrator account already exists")
		}
		return nil
	},
}
