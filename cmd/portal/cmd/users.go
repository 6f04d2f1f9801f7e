package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/homeowner/portal/internal/core/audit"
	"github.com/homeowner/portal/internal/core/domain"
)

var (
	emailFlag     string
	passwordFlag  string
	firstNameFlag string
	lastNameFlag  string
	roleFlag      string
	stdinFlag     bool
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage portal users",
	Long:  `Commands for managing portal accounts directly from the server.`,
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a confirmed account with a role",
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return errors.New("--email flag is required")
		}
		if !domain.IsKnownRole(roleFlag) {
			return fmt.Errorf("--role must be one of %v", domain.Roles)
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(cmd.OutOrStdout(), "Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return errors.New("password is required (use --password or --stdin)")
		}

		ctx := audit.WithActor(context.Background(), "cli")
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		user, err := newRepositories(db, nil).userService().CreateUser(ctx, domain.NewUser{
			Email:     emailFlag,
			Password:  password,
			FirstName: firstNameFlag,
			LastName:  lastNameFlag,
			Role:      roleFlag,
		})
		if err != nil {
			var ve domain.ValidationErrors
			if errors.As(err, &ve) {
				for _, fe := range ve {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", fe.Field, fe.Message)
				}
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s) with role %s\n", user.Email, user.ID, roleFlag)
		return nil
	},
}

func init() {
	usersCreateCmd.Flags().StringVar(&emailFlag, "email", "", "Email address, also used as the username")
	usersCreateCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	usersCreateCmd.Flags().StringVar(&firstNameFlag, "first-name", "", "First name")
	usersCreateCmd.Flags().StringVar(&lastNameFlag, "last-name", "", "Last name")
	usersCreateCmd.Flags().StringVar(&roleFlag, "role", domain.RoleHomeOwner, "Role to assign: Admin, Staff or HomeOwner")
	usersCreateCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")

	usersCmd.AddCommand(usersCreateCmd)
}
