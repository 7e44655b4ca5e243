// Package flow models ONOS forwarding rules and synthesizes them from
// planned paths.
package flow

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Rule priorities. Transit rules steer matched traffic along a planned
// path; endpoint rules outrank everything so locally-addressed packets
// always reach the attached host.
const (
	TransitPriority  = 40000
	EndpointPriority = 65534
)

// HostPort is the switch port reserved for the attached host.
const HostPort = "1"

// Criterion is one match entry of a flow selector.
type Criterion struct {
	Type    string `json:"type"`
	EthType string `json:"ethType,omitempty"`
	IP      string `json:"ip,omitempty"`
	Port    string `json:"port,omitempty"`
}

// Instruction is one action entry of a flow treatment.
type Instruction struct {
	Type string `json:"type"`
	Port string `json:"port,omitempty"`
}

// Selector is the match half of a rule.
type Selector struct {
	Criteria []Criterion `json:"criteria"`
}

// Treatment is the action half of a rule.
type Treatment struct {
	Instructions []Instruction `json:"instructions"`
}

// Flow is one forwarding rule at a single switch, in the controller's
// northbound JSON shape.
type Flow struct {
	DeviceID    string    `json:"deviceId"`
	Priority    int       `json:"priority"`
	Timeout     int       `json:"timeout"`
	IsPermanent bool      `json:"isPermanent"`
	Selector    Selector  `json:"selector"`
	Treatment   Treatment `json:"treatment"`
}

// Key returns the value identity of the rule: device, canonical selector
// and canonical treatment. Two rules with equal keys are the same rule.
func (f *Flow) Key() string {
	criteria := make([]string, len(f.Selector.Criteria))
	for i, c := range f.Selector.Criteria {
		criteria[i] = fmt.Sprintf("%s|%s|%s|%s", c.Type, c.EthType, c.IP, c.Port)
	}
	sort.Strings(criteria)

	instructions := make([]string, len(f.Treatment.Instructions))
	for i, in := range f.Treatment.Instructions {
		instructions[i] = fmt.Sprintf("%s|%s", in.Type, in.Port)
	}
	sort.Strings(instructions)

	return f.DeviceID + "#" + strings.Join(criteria, ",") + "#" + strings.Join(instructions, ",")
}

// Set is a value-deduplicated rule collection. Rules produced by
// overlapping paths collapse to one entry.
type Set struct {
	flows map[string]Flow
}

// NewSet creates an empty rule set.
func NewSet() *Set {
	return &Set{flows: make(map[string]Flow)}
}

// Add inserts rules, dropping duplicates.
func (s *Set) Add(flows ...Flow) {
	for _, f := range flows {
		s.flows[f.Key()] = f
	}
}

// Len returns the number of distinct rules.
func (s *Set) Len() int {
	return len(s.flows)
}

// Contains reports whether an identical rule is already present.
func (s *Set) Contains(f Flow) bool {
	_, ok := s.flows[f.Key()]
	return ok
}

// Flows returns the rules ordered by key, so serialization is stable.
func (s *Set) Flows() []Flow {
	keys := make([]string, 0, len(s.flows))
	for k := range s.flows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Flow, len(keys))
	for i, k := range keys {
		out[i] = s.flows[k]
	}
	return out
}

// Document is the POST body and artifact shape: {"flows":[...]}.
type Document struct {
	Flows []Flow `json:"flows"`
}

// MarshalDocument serializes the set as the batch document, pretty-printed.
func (s *Set) MarshalDocument() ([]byte, error) {
	return json.MarshalIndent(Document{Flows: s.Flows()}, "", "  ")
}
