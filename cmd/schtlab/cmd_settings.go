package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oplik0/scht-lab/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())
		fmt.Printf("host:            %s\n", app.settings.GetHost())
		fmt.Printf("user:            %s\n", app.settings.GetUser())
		fmt.Printf("max attempts:    %d\n", app.settings.GetMaxAttempts())
		backend := app.settings.GeocacheBackend
		if backend == "" {
			backend = "file"
		}
		fmt.Printf("geocache:        %s\n", backend)
		fmt.Printf("audit log:       %s\n", app.settings.GetAuditLogPath())
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one settings key",
	Long: `Set a persistent settings key. Known keys: host, user, password,
max_attempts, geocache_backend, redis_addr, audit_log_path,
audit_max_size_mb, audit_max_backups.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Round-trip through JSON so keys address the serialized field names.
		raw := map[string]interface{}{}
		data, err := json.Marshal(app.settings)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		switch args[0] {
		case "max_attempts", "audit_max_size_mb", "audit_max_backups":
			var n int
			if _, err := fmt.Sscanf(args[1], "%d", &n); err != nil {
				return fmt.Errorf("%s takes an integer: %w", args[0], err)
			}
			raw[args[0]] = n
		case "host", "user", "password", "geocache_backend", "redis_addr", "audit_log_path":
			raw[args[0]] = args[1]
		default:
			return fmt.Errorf("unknown settings key %q", args[0])
		}

		data, err = json.Marshal(raw)
		if err != nil {
			return err
		}
		updated := &settings.Settings{}
		if err := json.Unmarshal(data, updated); err != nil {
			return err
		}
		if err := updated.Save(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Saved %s\n", args[0])
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
}
