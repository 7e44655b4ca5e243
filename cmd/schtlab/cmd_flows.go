package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oplik0/scht-lab/pkg/cli"
	"github.com/oplik0/scht-lab/pkg/flow"
	"github.com/oplik0/scht-lab/pkg/settings"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Interact with controller flows",
}

var flowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List flows installed on the controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		flows, err := app.client().ListFlows(cmd.Context())
		if err != nil {
			return err
		}

		sort.Slice(flows, func(i, j int) bool {
			di, _ := flows[i]["deviceId"].(string)
			dj, _ := flows[j]["deviceId"].(string)
			return di < dj
		})

		for _, f := range flows {
			device, _ := f["deviceId"].(string)
			fmt.Println(cli.Cyan(device))
			fmt.Println("  Criteria")
			for _, entry := range nestedList(f, "selector", "criteria") {
				fmt.Printf("    %s\n", cli.Green(formatTyped(entry)))
			}
			fmt.Println("  Instructions")
			for _, entry := range nestedList(f, "treatment", "instructions") {
				fmt.Printf("    %s\n", cli.Red(formatTyped(entry)))
			}
		}
		return nil
	},
}

var flowsAddCmd = &cobra.Command{
	Use:   "add <device-id> <in-port> <out-port> <ip>",
	Short: "Install a single forwarding rule",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID := args[0]
		inPort, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("in-port: %w", err)
		}
		outPort, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("out-port: %w", err)
		}
		ip := args[3]

		f := flow.Flow{
			DeviceID:    deviceID,
			Priority:    flow.TransitPriority,
			Timeout:     0,
			IsPermanent: true,
			Selector: flow.Selector{Criteria: []flow.Criterion{
				{Type: "IN_PORT", Port: strconv.Itoa(inPort)},
				{Type: "ETH_TYPE", EthType: "0x800"},
				{Type: "IPV4_DST", IP: ip},
			}},
			Treatment: flow.Treatment{Instructions: []flow.Instruction{
				{Type: "OUTPUT", Port: strconv.Itoa(outPort)},
			}},
		}
		resp, err := app.client().SendFlows(cmd.Context(), []flow.Flow{f})
		if err != nil {
			fmt.Fprintln(os.Stderr, cli.Red(err.Error()))
			return nil
		}
		fmt.Printf("Controller response: %v\n", resp)
		return nil
	},
}

var flowsLoadCmd = &cobra.Command{
	Use:   "load <filename>",
	Short: "Show a flow artifact saved in the application directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(settings.AppDir(), "resources", args[0])
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var doc flow.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decoding flow file: %w", err)
		}
		fmt.Printf("Loaded %d flows from %s\n", len(doc.Flows), path)
		for _, f := range doc.Flows {
			fmt.Printf("%s priority=%d output=%s\n",
				cli.Cyan(f.DeviceID), f.Priority, f.Treatment.Instructions[0].Port)
		}
		return nil
	},
}

// nestedList digs out f[outer][inner] as a list of objects.
func nestedList(f map[string]interface{}, outer, inner string) []map[string]interface{} {
	o, _ := f[outer].(map[string]interface{})
	list, _ := o[inner].([]interface{})
	out := make([]map[string]interface{}, 0, len(list))
	for _, e := range list {
		if m, ok := e.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// formatTyped renders a criterion or instruction object as "TYPE: key=value"
// using its non-type field.
func formatTyped(m map[string]interface{}) string {
	typ, _ := m["type"].(string)
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != "type" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	s := typ + ":"
	for _, k := range keys {
		s += fmt.Sprintf(" %s=%v", k, m[k])
	}
	return s
}

func init() {
	flowsCmd.AddCommand(flowsListCmd, flowsAddCmd, flowsLoadCmd)
}
