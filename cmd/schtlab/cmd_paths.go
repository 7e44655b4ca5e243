package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oplik0/scht-lab/pkg/audit"
	"github.com/oplik0/scht-lab/pkg/cli"
	"github.com/oplik0/scht-lab/pkg/planner"
	"github.com/oplik0/scht-lab/pkg/settings"
	"github.com/oplik0/scht-lab/pkg/stream"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Plan paths for streams",
}

var (
	pathsFile        string
	pathsApply       bool
	pathsOutput      string
	pathsTopology    string
	pathsMaxAttempts int
	pathsCostVariant string
)

var pathsFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find paths for streams and synthesize their flow rules",
	Long: `Find paths based on stream specifications. Without -f, streams
previously staged with 'streams load' are used (and unstaged afterwards).

Each stream is planned in order: A* search under its priorities, hard
requirement checks on the chosen path, and adaptive priority escalation on
violation. Accepted paths commit their rate to every link they cross, so
later streams see the congestion earlier ones created.

With --apply the accumulated rules are installed on the controller in one
batch; with -o they are written to a file as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		staged := pathsFile == ""
		file := pathsFile
		if staged {
			file = settings.StagedStreamsPath()
		}
		streams, err := stream.ParseFile(file)
		if err != nil {
			return err
		}

		t, err := loadTopology(cmd, pathsTopology)
		if err != nil {
			return err
		}

		maxAttempts := pathsMaxAttempts
		if maxAttempts <= 0 {
			maxAttempts = app.settings.GetMaxAttempts()
		}

		result, err := planner.New(t, maxAttempts).Plan(cmd.Context(), streams.Streams)
		if result != nil {
			reportPlan(result)
			audit.Log(audit.NewEvent(app.user, app.host, audit.OpPlan).
				WithStreams(outcomes(result)).
				WithFlowCount(result.Flows.Len()).
				Complete(err))
		}
		if err != nil {
			return err
		}

		flows := result.Flows.Flows()
		if pathsApply {
			client := app.client()
			if err := client.ActivateDefaultApps(cmd.Context()); err != nil {
				// Activation trouble is worth seeing but does not abort the
				// install; the applications may already be running.
				fmt.Fprintln(os.Stderr, cli.Yellow(err.Error()))
			}
			resp, err := client.SendFlows(cmd.Context(), flows)
			audit.Log(audit.NewEvent(app.user, app.host, audit.OpInstall).
				WithFlowCount(len(flows)).
				Complete(err))
			if err != nil {
				// Controller errors are reported, not fatal: planning
				// artifacts below are still written.
				fmt.Fprintln(os.Stderr, cli.Red(err.Error()))
			} else {
				fmt.Printf("Controller response: %v\n", resp)
			}
		}
		if pathsOutput != "" {
			data, err := result.Flows.MarshalDocument()
			if err != nil {
				return err
			}
			if err := os.WriteFile(pathsOutput, data, 0644); err != nil {
				return err
			}
			fmt.Printf("Wrote %d flows to %s\n", len(flows), pathsOutput)
		}
		if !pathsApply && pathsOutput == "" {
			data, err := result.Flows.MarshalDocument()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		}

		if staged {
			os.Remove(file)
		}
		return nil
	},
}

var pathsAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Compute all-pairs shortest paths under a fixed cost",
	Long: `Compute shortest paths between every pair of cities with one of the
fixed cost variants: delay, jitter, bandwidth, loss, or combined. Useful for
offline analysis of the topology before planning streams.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		variant := planner.CostVariant(pathsCostVariant)
		known := false
		for _, v := range planner.Variants() {
			if v == variant {
				known = true
			}
		}
		if !known {
			return fmt.Errorf("unknown cost variant %q (valid: %v)", pathsCostVariant, planner.Variants())
		}

		t, err := loadTopology(cmd, pathsTopology)
		if err != nil {
			return err
		}

		all := planner.AllPairsShortestPaths(t, planner.VariantCost(variant))
		tbl := cli.NewTable("FROM", "TO", "PATH")
		for _, src := range t.Locations {
			for _, dst := range t.Locations {
				if src == dst {
					continue
				}
				path, ok := all[src][dst]
				if !ok {
					tbl.Row(src.Name, dst.Name, cli.Red("unreachable"))
					continue
				}
				names := make([]string, len(path))
				for i, l := range path {
					names[i] = l.Name
				}
				tbl.Row(src.Name, dst.Name, strings.Join(names, " -> "))
			}
		}
		tbl.Flush()
		return nil
	},
}

// reportPlan prints per-stream outcomes.
func reportPlan(result *planner.Result) {
	for _, sr := range result.Streams {
		if sr.Routed() {
			fmt.Printf("%s %s: %s (delay %s, loss %s, bottleneck %s, %d attempt(s))\n",
				cli.Green("routed"), sr.Stream.String(),
				strings.Join(sr.PathNames(), " -> "),
				cli.Ms(sr.Metrics.Delay), cli.Float(sr.Metrics.Loss),
				cli.Mbps(sr.Metrics.Bandwidth), sr.Attempts)
		} else {
			fmt.Printf("%s %s: %v\n", cli.Red("unrouted"), sr.Stream.String(), sr.Err)
		}
	}
}

// outcomes converts planner results into audit records.
func outcomes(result *planner.Result) []audit.StreamOutcome {
	out := make([]audit.StreamOutcome, len(result.Streams))
	for i, sr := range result.Streams {
		o := audit.StreamOutcome{
			Src:      sr.Stream.Src,
			Dst:      sr.Stream.Dst,
			Type:     string(sr.Stream.Type),
			Rate:     sr.Stream.Rate,
			Routed:   sr.Routed(),
			Attempts: sr.Attempts,
		}
		if sr.Routed() {
			o.Path = sr.PathNames()
		} else {
			o.Error = sr.Err.Error()
		}
		out[i] = o
	}
	return out
}

func init() {
	pathsFindCmd.Flags().StringVarP(&pathsFile, "file", "f", "", "JSON file with stream specifications (default: staged streams)")
	pathsFindCmd.Flags().BoolVarP(&pathsApply, "apply", "a", false, "Apply the paths to the network")
	pathsFindCmd.Flags().StringVarP(&pathsOutput, "output", "o", "", "File to output the resulting flows to as JSON")
	pathsFindCmd.Flags().StringVarP(&pathsTopology, "topology", "t", "", "Topology file to use")
	pathsFindCmd.Flags().IntVarP(&pathsMaxAttempts, "max-attempts", "m", 0, "Retry bound per stream (default from settings)")

	pathsAllCmd.Flags().StringVarP(&pathsTopology, "topology", "t", "", "Topology file to use")
	pathsAllCmd.Flags().StringVarP(&pathsCostVariant, "cost", "c", "combined", "Cost variant: delay, jitter, bandwidth, loss, combined")

	pathsCmd.AddCommand(pathsFindCmd, pathsAllCmd)
}
