package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tasktrack/apiserver/config"
	"github.com/tasktrack/apiserver/internal/notify"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect task events",
}

var eventsListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Subscribe to the task-event channel and print events",
	Long: `Subscribe to the task-event channel and print every event as it
arrives. Useful for verifying broker wiring and for tailing task activity
during development. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		publisher, err := notify.FromConfig(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		if publisher == nil {
			return fmt.Errorf("no notify backend configured (set NOTIFY_BACKEND)")
		}
		defer publisher.Close()

		return publisher.Listen(cmd.Context(), func(event notify.TaskEvent) {
			fmt.Fprintf(os.Stdout, "%s\ttask=%d\t%q\tassignee=%d\n",
				event.Type, event.TaskID, event.Title, event.AssigneeID)
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListenCmd)
}
