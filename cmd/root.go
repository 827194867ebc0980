package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tasktrack",
	Short: "Role-based task tracking API server",
	Long: `tasktrack is a role-based task tracking service.

Superadmins manage admin and user accounts, admins create tasks for the
users they supervise, and users complete their assigned tasks.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
