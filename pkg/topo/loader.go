package topo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/oplik0/scht-lab/pkg/geo"
	"github.com/oplik0/scht-lab/pkg/util"
)

// Resolver is the geocoding capability the loader consumes. A nil Resolver
// leaves all coordinates unset.
type Resolver interface {
	ResolveAll(ctx context.Context, names []string) map[string]*geo.Coords
}

// cityDef is one topology-file entry, with input order preserved for both
// cities and their neighbor lists.
type cityDef struct {
	Name         string
	IP           string
	Population   int
	Connectivity int
	Neighbors    []neighborDef
}

type neighborDef struct {
	Name     string
	Distance int
}

// Load builds a Topology from a topology JSON document. Object key order in
// the document defines location indices, default IP assignment and port
// numbering, so parsing preserves insertion order. Coordinates for all
// cities are resolved through the Resolver concurrently before Load returns.
func Load(ctx context.Context, data []byte, resolver Resolver) (*Topology, error) {
	cities, err := parseOrdered(data)
	if err != nil {
		return nil, fmt.Errorf("parsing topology: %w", err)
	}
	if len(cities) == 0 {
		return nil, util.NewValidationError("topology defines no cities")
	}

	t := &Topology{}
	for i, c := range cities {
		if c.Population < 0 {
			return nil, util.NewValidationError(fmt.Sprintf("city %q: population must be non-negative", c.Name))
		}
		t.AddLocation(NewLocation(c.Name, i, c.IP, c.Population, c.Connectivity))
	}

	for _, c := range cities {
		src := t.GetLocation(c.Name)
		for _, n := range c.Neighbors {
			dst := t.GetLocation(n.Name)
			if dst == nil {
				return nil, util.NewValidationError(fmt.Sprintf("city %q: unknown neighbor %q", c.Name, n.Name))
			}
			if n.Distance <= 0 {
				return nil, util.NewValidationError(fmt.Sprintf("link %s <-> %s: distance must be positive", c.Name, n.Name))
			}
			// Neighbor maps name both directions of a link; only the first
			// mention creates it.
			if t.GetLink(src, dst) != nil {
				continue
			}
			if _, err := t.AddLink(src, dst, n.Distance); err != nil {
				return nil, err
			}
		}
	}

	if resolver != nil {
		names := make([]string, len(t.Locations))
		for i, l := range t.Locations {
			names[i] = l.Name
		}
		for name, c := range resolver.ResolveAll(ctx, names) {
			if c == nil {
				continue
			}
			l := t.GetLocation(name)
			lat, lon := c.Lat, c.Lon
			l.Lat = &lat
			l.Lon = &lon
		}
	}

	return t, nil
}

// LoadFile reads and builds a topology from a file path.
func LoadFile(ctx context.Context, path string, resolver Resolver) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology file: %w", err)
	}
	return Load(ctx, data, resolver)
}

// parseOrdered decodes the topology document keeping object-key order.
// encoding/json maps discard order, so the document is walked token by
// token instead.
func parseOrdered(data []byte) ([]cityDef, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var cities []cityDef
	for dec.More() {
		name, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		city, err := parseCity(dec, name)
		if err != nil {
			return nil, fmt.Errorf("city %q: %w", name, err)
		}
		cities = append(cities, city)
	}
	return cities, expectDelim(dec, '}')
}

func parseCity(dec *json.Decoder, name string) (cityDef, error) {
	c := cityDef{Name: name}

	if err := expectDelim(dec, '{'); err != nil {
		return c, err
	}
	for dec.More() {
		field, err := stringToken(dec)
		if err != nil {
			return c, err
		}
		switch field {
		case "population":
			if err := decodeInt(dec, &c.Population); err != nil {
				return c, fmt.Errorf("population: %w", err)
			}
		case "connectivity":
			if err := decodeInt(dec, &c.Connectivity); err != nil {
				return c, fmt.Errorf("connectivity: %w", err)
			}
		case "ip":
			var s string
			if err := dec.Decode(&s); err != nil {
				return c, fmt.Errorf("ip: %w", err)
			}
			c.IP = s
		case "neighbors":
			neighbors, err := parseNeighbors(dec)
			if err != nil {
				return c, err
			}
			c.Neighbors = neighbors
		default:
			// Unknown fields are skipped but not rejected, so topology
			// files can round-trip annotations.
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return c, err
			}
		}
	}
	return c, expectDelim(dec, '}')
}

func parseNeighbors(dec *json.Decoder) ([]neighborDef, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var out []neighborDef
	for dec.More() {
		name, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		var dist int
		if err := decodeInt(dec, &dist); err != nil {
			return nil, fmt.Errorf("neighbor %q: %w", name, err)
		}
		out = append(out, neighborDef{Name: name, Distance: dist})
	}
	return out, expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected string key, got %v", tok)
	}
	return s, nil
}

func decodeInt(dec *json.Decoder, out *int) error {
	var v float64
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*out = int(v)
	return nil
}
