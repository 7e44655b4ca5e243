// schtlab - QoS-aware path planner and flow installer for an ONOS-managed
// network.
//
// Given a city topology and a set of application streams, schtlab computes
// per-stream paths under QoS requirements and installs the resulting
// forwarding rules through the controller's northbound REST API.
//
//	schtlab topo load topo.json           # save the default topology
//	schtlab topo show                     # inspect locations and link metrics
//	schtlab streams load streams.jsonl    # stage streams
//	schtlab paths find -f streams.json -a # plan and install flows
//	schtlab flows list                    # inspect installed flows
//
// Global flags select the controller: -h/--host, -u/--user, -p/--password.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oplik0/scht-lab/pkg/audit"
	"github.com/oplik0/scht-lab/pkg/geo"
	"github.com/oplik0/scht-lab/pkg/onos"
	"github.com/oplik0/scht-lab/pkg/settings"
	"github.com/oplik0/scht-lab/pkg/util"
	"github.com/oplik0/scht-lab/pkg/version"
)

// App holds CLI state shared across all commands.
type App struct {
	// Option flags
	host     string
	user     string
	password string
	verbose  bool

	// Initialized state (set in PersistentPreRunE)
	settings *settings.Settings
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "schtlab",
	Short:             "QoS path planner and flow installer",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `schtlab plans QoS-aware paths for application streams over a city
topology and installs the resulting forwarding rules on an ONOS controller.

Commands are organized by resource (topo, streams, paths, flows).

  schtlab topo load topo.json
  schtlab streams load streams.jsonl
  schtlab paths find -f streams.json --apply
  schtlab flows list`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Version and help need no settings, credentials, or audit log.
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		app.settings, err = settings.Load()
		if err != nil {
			util.Logger.Warnf("Could not load settings: %v", err)
			app.settings = &settings.Settings{}
		}

		// Flags override settings, settings override built-in defaults.
		if app.host == "" {
			app.host = app.settings.GetHost()
		}
		if app.user == "" {
			app.user = app.settings.GetUser()
		}
		if app.password == "" {
			app.password = app.settings.GetPassword()
		}

		if app.verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		auditLogger, err := audit.NewFileLogger(app.settings.GetAuditLogPath(), audit.RotationConfig{
			MaxSize:    int64(app.settings.GetAuditMaxSizeMB()) * 1024 * 1024,
			MaxBackups: app.settings.GetAuditMaxBackups(),
		})
		if err != nil {
			util.Logger.Warnf("Could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}

		return nil
	},
}

// client builds the controller client from the resolved connection flags.
func (a *App) client() *onos.Client {
	return onos.New(a.host, a.user, a.password, 30*time.Second)
}

// geocoder builds the geocoding chain with the configured cache backend.
func (a *App) geocoder() *geo.Geocoder {
	var cache geo.Cache
	if a.settings.GeocacheBackend == "redis" && a.settings.RedisAddr != "" {
		cache = geo.NewRedisCache(a.settings.RedisAddr)
	} else {
		fileCache, err := geo.NewFileCache(settings.GeocacheDir())
		if err != nil {
			util.Logger.Warnf("Could not open geocoder cache: %v", err)
		} else {
			cache = fileCache
		}
	}
	return geo.New(nil, cache)
}

func init() {
	// -h is the controller host, so the help flag must be registered first
	// without a shorthand or cobra's default would claim -h.
	rootCmd.PersistentFlags().Bool("help", false, "Help for schtlab")
	rootCmd.PersistentFlags().StringVarP(&app.host, "host", "h", "", "Controller address (default "+settings.DefaultHost+")")
	rootCmd.PersistentFlags().StringVarP(&app.user, "user", "u", "", "Controller username")
	rootCmd.PersistentFlags().StringVarP(&app.password, "password", "p", "", "Controller password")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(topoCmd, streamsCmd, pathsCmd, flowsCmd, settingsCmd, cleanCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("schtlab dev build (use 'make build' for version info)")
		} else {
			fmt.Printf("schtlab %s (%s)\n", version.Version, version.GitCommit)
		}
	},
}
