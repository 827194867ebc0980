package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tasktrack/apiserver/config"
	"github.com/tasktrack/apiserver/internal/server"
)

// serverCmd represents the server command.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the tasktrack API server",
	Long: `Starts the tasktrack API server. Usage:

	tasktrack server
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		srv, err := server.New(cmd.Context(), cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
			os.Exit(1)
		}
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
