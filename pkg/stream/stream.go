// Package stream defines application stream descriptors: endpoints,
// transport, expected rate, and optional QoS requirements and priorities.
package stream

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oplik0/scht-lab/pkg/util"
)

// Type is the transport of a stream.
type Type string

const (
	TCP  Type = "TCP"
	UDP  Type = "UDP"
	QUIC Type = "QUIC"
)

// Valid reports whether the transport is one of the known variants.
func (t Type) Valid() bool {
	switch t {
	case TCP, UDP, QUIC:
		return true
	}
	return false
}

// Requirements are hard QoS bounds. Unset fields impose no bound; unset is
// distinct from zero.
type Requirements struct {
	Delay     *float64 `json:"delay,omitempty"`
	Jitter    *float64 `json:"jitter,omitempty"`
	Bandwidth *float64 `json:"bandwidth,omitempty"`
	Loss      *float64 `json:"loss,omitempty"`
}

// BandwidthMin returns the bandwidth floor, 0 when unset.
func (r *Requirements) BandwidthMin() float64 {
	if r == nil || r.Bandwidth == nil {
		return 0
	}
	return *r.Bandwidth
}

// Priorities are per-dimension cost weights. An unset weight contributes
// nothing to link cost; a zero weight is equivalent to unset.
type Priorities struct {
	Delay      *float64 `json:"delay,omitempty"`
	Jitter     *float64 `json:"jitter,omitempty"`
	Bandwidth  *float64 `json:"bandwidth,omitempty"`
	Loss       *float64 `json:"loss,omitempty"`
	Congestion *float64 `json:"congestion,omitempty"`
}

// Weight dereferences an optional priority, 0 when unset.
func Weight(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Clone returns a copy so the planner can escalate weights per stream
// without mutating the caller's definition.
func (p *Priorities) Clone() *Priorities {
	if p == nil {
		return &Priorities{}
	}
	out := &Priorities{}
	copyOpt := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		c := *v
		return &c
	}
	out.Delay = copyOpt(p.Delay)
	out.Jitter = copyOpt(p.Jitter)
	out.Bandwidth = copyOpt(p.Bandwidth)
	out.Loss = copyOpt(p.Loss)
	out.Congestion = copyOpt(p.Congestion)
	return out
}

// Stream describes one application traffic flow between two cities.
type Stream struct {
	Src          string        `json:"src"`
	Dst          string        `json:"dst"`
	Type         Type          `json:"type"`
	Rate         int           `json:"rate"`
	Size         int           `json:"size,omitempty"`
	Requirements *Requirements `json:"requirements,omitempty"`
	Priorities   *Priorities   `json:"priorities,omitempty"`
}

func (s *Stream) String() string {
	return fmt.Sprintf("%s %s -> %s @ %d Mbps", s.Type, s.Src, s.Dst, s.Rate)
}

// Streams is the document container for a stream list.
type Streams struct {
	Streams []Stream `json:"streams"`
}

// Validate checks every stream for required fields.
func (s *Streams) Validate() error {
	var b util.ValidationBuilder
	b.Require(len(s.Streams) > 0, "document defines no streams")
	for i, st := range s.Streams {
		b.Require(st.Src != "", "stream %d: src is required", i)
		b.Require(st.Dst != "", "stream %d: dst is required", i)
		b.Require(st.Type.Valid(), "stream %d: unknown type %q", i, st.Type)
		b.Require(st.Rate > 0, "stream %d: rate must be a positive Mbps value", i)
	}
	return b.Err()
}

// Parse decodes a stream document from JSON or JSONL. JSONL input is
// normalized into the {"streams":[...]} shape first.
func Parse(data []byte) (*Streams, error) {
	if !util.IsStreamsKeyed(data) {
		data = util.JSONLToKeyed(data, "streams")
	}
	var s Streams
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding streams: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseFile reads and decodes a stream document from a file.
func ParseFile(path string) (*Streams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading streams file: %w", err)
	}
	return Parse(data)
}

// Save writes the streams as indented JSON.
func (s *Streams) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
