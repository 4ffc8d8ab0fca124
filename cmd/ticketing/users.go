package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helpdesk-labs/ticketing/internal/auth"
	"github.com/helpdesk-labs/ticketing/internal/config"
	"github.com/helpdesk-labs/ticketing/internal/persistence"
	"github.com/helpdesk-labs/ticketing/internal/repository"
	"github.com/helpdesk-labs/ticketing/internal/service"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Administer user accounts",
}

var (
	userName     string
	userPassword string
	userAdmin    bool
)

var usersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user with a salted scrypt password hash",
	Args:  cobra.NoArgs,
	RunE:  runUsersAdd,
}

func init() {
	usersAddCmd.Flags().StringVar(&userName, "name", "", "login name")
	usersAddCmd.Flags().StringVar(&userPassword, "password", "", "initial password")
	usersAddCmd.Flags().BoolVar(&userAdmin, "admin", false, "grant the admin role")
	_ = usersAddCmd.MarkFlagRequired("name")
	_ = usersAddCmd.MarkFlagRequired("password")
	usersCmd.AddCommand(usersAddCmd)
}

func runUsersAdd(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime("users")
	if err != nil {
		return err
	}
	defer rt.close()

	if rt.cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN must be set to add users")
	}
	ctx := cmd.Context()
	pg, err := persistence.NewPostgres(ctx, rt.cfg.Postgres, rt.logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	users := repository.NewUserRepository(pg.Pool)
	accounts := service.NewAuthService(config.AuthConfig{}, service.AuthDependencies{
		Verifier: auth.NewScryptVerifier(users),
		UserRepo: users,
		Logger:   rt.logger,
	})
	user, err := accounts.RegisterUser(ctx, userName, userPassword, userAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user %q (id %d, %s)\n", user.Name, user.ID, user.Principal().Role)
	return nil
}
