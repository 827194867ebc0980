package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tasktrack/apiserver/config"
	"github.com/tasktrack/apiserver/internal/db"
	"github.com/tasktrack/apiserver/internal/store"
	"github.com/tasktrack/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

var (
	superadminUsername string
	superadminEmail    string
	superadminPassword string
)

// superadminCmd represents the superadmin command.
var superadminCmd = &cobra.Command{
	Use:   "superadmin",
	Short: "Manage superadmin accounts",
}

// Accounts never self-register, so the first superadmin has to be
// seeded from the command line before the server is useful.
var superadminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a superadmin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username := strings.TrimSpace(superadminUsername)
		if username == "" {
			return errors.New("--username is required")
		}
		if superadminPassword == "" {
			return errors.New("--password is required")
		}

		cfg := config.LoadConfig()
		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer dbConn.Close()

		users := store.NewUserRepository(dbConn)
		if _, err := users.GetByUsername(cmd.Context(), username); err == nil {
			return fmt.Errorf("username %q already exists", username)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(superadminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		created, err := users.Create(cmd.Context(), types.User{
			Username:     username,
			Email:        strings.TrimSpace(superadminEmail),
			Role:         types.RoleSuperadmin,
			PasswordHash: string(hashed),
			IsActive:     true,
		})
		if err != nil {
			return fmt.Errorf("create superadmin: %w", err)
		}

		fmt.Printf("superadmin %q created (id=%d)\n", created.Username, created.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(superadminCmd)
	superadminCmd.AddCommand(superadminCreateCmd)

	superadminCreateCmd.Flags().StringVar(&superadminUsername, "username", "", "login name for the new superadmin")
	superadminCreateCmd.Flags().StringVar(&superadminEmail, "email", "", "email address for the new superadmin")
	superadminCreateCmd.Flags().StringVar(&superadminPassword, "password", "", "password for the new superadmin")
}
