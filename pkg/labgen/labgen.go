// Package labgen generates an emulator lab topology file from a loaded
// topology, so the same graph can be instantiated as virtual switches and
// hosts for testing planned flows.
package labgen

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oplik0/scht-lab/pkg/cli"
	"github.com/oplik0/scht-lab/pkg/topo"
	"github.com/oplik0/scht-lab/pkg/util"
)

// Host link parameters. Every host hangs off port 1 of its switch over a
// short, fat, near-lossless link.
const (
	hostLinkDelay = "1ms"
	hostLinkBW    = 1000
	hostLinkLoss  = 0.01
)

// LabTopology is the emulator topology YAML structure.
type LabTopology struct {
	Name     string              `yaml:"name"`
	Hosts    map[string]*LabHost `yaml:"hosts"`
	Switches map[string]*LabNode `yaml:"switches"`
	Links    []LabLink           `yaml:"links"`
}

// LabHost defines one emulated host.
type LabHost struct {
	IP     string `yaml:"ip"`
	Switch string `yaml:"switch"`
}

// LabNode defines one emulated switch.
type LabNode struct {
	DPID string `yaml:"dpid"`
	City string `yaml:"city"`
}

// LabLink defines one emulated link with its shaping parameters.
type LabLink struct {
	Endpoints []string `yaml:"endpoints"`
	Delay     string   `yaml:"delay"`
	Jitter    string   `yaml:"jitter,omitempty"`
	Bandwidth float64  `yaml:"bandwidth"`
	Loss      float64  `yaml:"loss"`
}

// hostName and switchName mirror the emulator's naming convention:
// h<City> for hosts, s<index+1> for switches.
func hostName(l *topo.Location) string   { return "h" + l.Name }
func switchName(l *topo.Location) string { return fmt.Sprintf("s%d", l.Index+1) }

// Generate builds the emulator topology document from a loaded topology.
func Generate(t *topo.Topology, name string) *LabTopology {
	lab := &LabTopology{
		Name:     name,
		Hosts:    make(map[string]*LabHost, len(t.Locations)),
		Switches: make(map[string]*LabNode, len(t.Locations)),
	}

	for _, l := range t.Locations {
		sw := switchName(l)
		lab.Switches[sw] = &LabNode{
			DPID: fmt.Sprintf("%x", l.Index+1),
			City: l.Name,
		}
		lab.Hosts[hostName(l)] = &LabHost{IP: l.Addr(), Switch: sw}
		lab.Links = append(lab.Links, LabLink{
			Endpoints: []string{hostName(l), sw},
			Delay:     hostLinkDelay,
			Bandwidth: hostLinkBW,
			Loss:      hostLinkLoss,
		})
	}

	for _, link := range t.Links {
		a, b := link.Endpoints()
		lab.Links = append(lab.Links, LabLink{
			Endpoints: []string{switchName(a), switchName(b)},
			Delay:     fmt.Sprintf("%sms", cli.Float(link.Delay())),
			Jitter:    fmt.Sprintf("%sms", cli.Float(link.Jitter())),
			Bandwidth: link.Bandwidth(),
			Loss:      link.Loss(),
		})
		util.WithFields(map[string]interface{}{
			"link":      link.String(),
			"delay":     link.Delay(),
			"jitter":    link.Jitter(),
			"bandwidth": link.Bandwidth(),
			"loss":      link.Loss(),
		}).Info("emulated link parameters")
	}

	return lab
}

// Write serializes the lab topology to a YAML file.
func Write(lab *LabTopology, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	data, err := yaml.Marshal(lab)
	if err != nil {
		return fmt.Errorf("serializing lab topology: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
