package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oplik0/scht-lab/pkg/cli"
	"github.com/oplik0/scht-lab/pkg/settings"
	"github.com/oplik0/scht-lab/pkg/stream"
)

var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "Manage stream definitions",
}

var streamsLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load streams from a JSON or JSONL file and stage them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		s, err := stream.Parse(data)
		if err != nil {
			return err
		}
		printStreams(s)

		// Staged streams are what 'paths find' picks up when no -f is given.
		path := settings.StagedStreamsPath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		fmt.Println("Staged streams for the next planning run")
		return nil
	},
}

var streamsSaveCmd = &cobra.Command{
	Use:   "save <stream-json>...",
	Short: "Save streams given as JSONL fragments on the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := stream.Parse([]byte(strings.Join(args, "\n")))
		if err != nil {
			return err
		}
		printStreams(s)

		path := settings.SavedStreamsPath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := s.Save(path); err != nil {
			return err
		}
		fmt.Printf("Saved streams to %s\n", path)
		return nil
	},
}

var streamsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List streams saved from the CLI",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := stream.ParseFile(settings.SavedStreamsPath())
		if err != nil {
			return err
		}
		printStreams(s)
		return nil
	},
}

func printStreams(s *stream.Streams) {
	tbl := cli.NewTable("SRC", "DST", "TYPE", "RATE", "REQUIREMENTS", "PRIORITIES")
	for _, st := range s.Streams {
		tbl.Row(st.Src, st.Dst, string(st.Type), fmt.Sprintf("%d Mbps", st.Rate),
			formatRequirements(st.Requirements), formatPriorities(st.Priorities))
	}
	tbl.Flush()
}

func formatRequirements(r *stream.Requirements) string {
	if r == nil {
		return "-"
	}
	var parts []string
	add := func(name string, v *float64) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s<=%s", name, cli.Float(*v)))
		}
	}
	add("delay", r.Delay)
	add("jitter", r.Jitter)
	add("loss", r.Loss)
	if r.Bandwidth != nil {
		parts = append(parts, fmt.Sprintf("bw>=%s", cli.Float(*r.Bandwidth)))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func formatPriorities(p *stream.Priorities) string {
	if p == nil {
		return "-"
	}
	var parts []string
	add := func(name string, v *float64) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s=%s", name, cli.Float(*v)))
		}
	}
	add("delay", p.Delay)
	add("jitter", p.Jitter)
	add("bandwidth", p.Bandwidth)
	add("loss", p.Loss)
	add("congestion", p.Congestion)
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func init() {
	streamsCmd.AddCommand(streamsLoadCmd, streamsSaveCmd, streamsListCmd)
}
