package cmd

import (
	"context"
	"errors"
	"fmt"

	"article-api/backend/internal/models"
	"article-api/backend/internal/service"
	"article-api/backend/pkg/jwt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		container, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer container.Close(context.Background())

		if err := container.Migrate(); err != nil {
			return err
		}
		container.Logger.Info("database schema up to date")
		return nil
	},
}

var adminFlags struct {
	username string
	email    string
	password string
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if len(adminFlags.password) < 6 {
			return errors.New("password must be at least 6 characters")
		}

		container, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer container.Close(context.Background())

		if err := container.Migrate(); err != nil {
			return err
		}

		user, err := container.UserService.CreateUser(cmd.Context(), &models.UserCreate{
			Username: adminFlags.username,
			Email:    adminFlags.email,
			Password: adminFlags.password,
			Role:     jwt.RoleAdmin,
		})
		if errors.Is(err, service.ErrUserAlreadyExists) {
			return fmt.Errorf("user %q or email %q already exists", adminFlags.username, adminFlags.email)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	flags := createAdminCmd.Flags()
	flags.StringVar(&adminFlags.username, "username", "admin", "admin username")
	flags.StringVar(&adminFlags.email, "email", "", "admin email")
	flags.StringVar(&adminFlags.password, "password", "", "admin password (at least 6 characters)")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}
