package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oplik0/scht-lab/pkg/cli"
	"github.com/oplik0/scht-lab/pkg/labgen"
	"github.com/oplik0/scht-lab/pkg/settings"
	"github.com/oplik0/scht-lab/pkg/topo"
)

var topoCmd = &cobra.Command{
	Use:   "topo",
	Short: "Manage the network topology",
}

var topoLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load a topology file and save it as the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		t, err := topo.Load(cmd.Context(), data, app.geocoder())
		if err != nil {
			return err
		}
		fmt.Printf("Loaded topology: %d cities, %d links\n", len(t.Locations), len(t.Links))

		// The default topology is the verbatim input document, so key order
		// and any annotations survive the round trip.
		path := settings.DefaultTopologyPath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		fmt.Printf("Saved as default topology (%s)\n", path)
		return nil
	},
}

var (
	topoFile   string
	topoOut    string
	topoLayout string
)

var topoShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show topology locations and link metrics",
	Long: `Show the loaded topology: every city with its switch identifiers,
and every link with its derived QoS metrics.

With -o the topology is written as a Graphviz document instead; -m selects
the layout engine recorded in it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTopology(cmd, topoFile)
		if err != nil {
			return err
		}

		if topoOut != "" {
			if err := os.WriteFile(topoOut, []byte(topoDot(t, topoLayout)), 0644); err != nil {
				return err
			}
			fmt.Printf("Wrote graph to %s\n", topoOut)
			return nil
		}

		locations := cli.NewTable("CITY", "INDEX", "IP", "DEVICE", "POPULATION", "COORDS")
		for _, l := range t.Locations {
			coords := "-"
			if l.HasCoords() {
				coords = fmt.Sprintf("%.3f, %.3f", *l.Lat, *l.Lon)
			}
			locations.Row(l.Name, fmt.Sprintf("%d", l.Index), l.IP, l.OFName(),
				fmt.Sprintf("%d", l.Population), coords)
		}
		locations.Flush()

		fmt.Println()
		links := cli.NewTable("LINK", "KM", "DELAY", "JITTER", "BANDWIDTH", "LOSS", "USED")
		for _, link := range t.Links {
			links.Row(link.String(), fmt.Sprintf("%d", link.Distance),
				cli.Ms(link.Delay()), cli.Ms(link.Jitter()),
				cli.Mbps(link.Bandwidth()), cli.Float(link.Loss()),
				cli.Mbps(link.Utilization))
		}
		links.Flush()
		return nil
	},
}

var topoLabCmd = &cobra.Command{
	Use:   "lab",
	Short: "Generate an emulator lab topology file",
	Long: `Generate a lab topology file for the network emulator, instantiating
the same graph as virtual switches and hosts: one host per city on switch
port 1, inter-switch links shaped with the computed delay, jitter,
bandwidth and loss.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTopology(cmd, topoFile)
		if err != nil {
			return err
		}
		out := topoOut
		if out == "" {
			out = "lab.yaml"
		}
		name := strings.TrimSuffix(filepath.Base(out), filepath.Ext(out))
		if err := labgen.Write(labgen.Generate(t, name), out); err != nil {
			return err
		}
		fmt.Printf("Wrote lab topology to %s\n", out)
		return nil
	},
}

// loadTopology loads a topology from an explicit file or the saved default.
func loadTopology(cmd *cobra.Command, file string) (*topo.Topology, error) {
	if file == "" {
		file = settings.DefaultTopologyPath()
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("no default topology — run 'schtlab topo load <file>' first")
		}
	}
	return topo.LoadFile(cmd.Context(), file, app.geocoder())
}

// topoDot renders the topology as a Graphviz document. The layout engine is
// recorded as a graph attribute for the renderer.
func topoDot(t *topo.Topology, layout string) string {
	var b strings.Builder
	b.WriteString("graph topology {\n")
	fmt.Fprintf(&b, "  layout=%s;\n", layout)
	for _, l := range t.Locations {
		fmt.Fprintf(&b, "  %q [label=%q];\n", l.Name, fmt.Sprintf("%s\n%s", l.Name, l.Addr()))
	}
	for _, link := range t.Links {
		a, c := link.Endpoints()
		fmt.Fprintf(&b, "  %q -- %q [label=\"%d km\"];\n", a.Name, c.Name, link.Distance)
	}
	b.WriteString("}\n")
	return b.String()
}

func init() {
	for _, cmd := range []*cobra.Command{topoShowCmd, topoLabCmd} {
		cmd.Flags().StringVarP(&topoFile, "topology", "t", "", "Topology file (default: saved default topology)")
		cmd.Flags().StringVarP(&topoOut, "output", "o", "", "Output file")
	}
	topoShowCmd.Flags().StringVarP(&topoLayout, "method", "m", "circo", "Graphviz layout engine for -o output")

	topoCmd.AddCommand(topoLoadCmd, topoShowCmd, topoLabCmd)
}
