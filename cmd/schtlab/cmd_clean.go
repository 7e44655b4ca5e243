package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oplik0/scht-lab/pkg/settings"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove local state (default topology, staged streams, geocoder cache)",
	Long: `Remove everything schtlab has stored locally: the default topology,
staged and saved streams, and the geocoder cache. Flows already installed on
the controller are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := []string{
			settings.DefaultTopologyPath(),
			settings.StagedStreamsPath(),
			settings.SavedStreamsPath(),
		}
		for _, path := range targets {
			if err := os.Remove(path); err == nil {
				fmt.Printf("Removed %s\n", path)
			} else if !os.IsNotExist(err) {
				return err
			}
		}
		if err := os.RemoveAll(settings.GeocacheDir()); err != nil {
			return err
		}
		fmt.Println("Removed geocoder cache")
		return nil
	},
}
