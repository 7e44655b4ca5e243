// Package topo holds the in-memory network model: cities with attached
// hosts (Location), inter-city links with derived QoS metrics (Link), and
// the Topology that owns both.
package topo

import (
	"fmt"

	"github.com/oplik0/scht-lab/pkg/util"
)

// Location is a city: one switch plus its attached host.
type Location struct {
	Name         string
	Index        int
	IP           string
	Population   int
	Connectivity int
	Lat          *float64
	Lon          *float64

	// LinkCount is the next free port number minus one. Port 1 is reserved
	// for the attached host; inter-switch links take ports from 2 up.
	LinkCount int

	ofname string
}

// NewLocation creates a Location with its derived identifiers. An empty ip
// selects the default 10.0.0.{index+1}/8 addressing.
func NewLocation(name string, index int, ip string, population, connectivity int) *Location {
	if ip == "" {
		ip = fmt.Sprintf("10.0.0.%d/8", index+1)
	}
	return &Location{
		Name:         name,
		Index:        index,
		IP:           ip,
		Population:   population,
		Connectivity: connectivity,
		LinkCount:    1,
		ofname:       fmt.Sprintf("of:%016x", index+1),
	}
}

// OFName returns the OpenFlow device id derived from the switch index.
func (l *Location) OFName() string {
	return l.ofname
}

// Addr returns the host address without its prefix length.
func (l *Location) Addr() string {
	return util.Addr(l.IP)
}

// HasCoords reports whether geocoding produced coordinates for this city.
func (l *Location) HasCoords() bool {
	return l.Lat != nil && l.Lon != nil
}

// Maxima holds per-metric maxima across all links of a topology. The planner
// captures one Maxima before a run so normalization denominators stay
// constant across streams.
type Maxima struct {
	Delay     float64
	Jitter    float64
	Bandwidth float64
	Loss      float64
}

// Topology owns the ordered list of Locations and the Links between them.
type Topology struct {
	Locations []*Location
	Links     []*Link

	maxima *Maxima
}

// AddLocation appends a location. The caller assigns contiguous indices in
// input order.
func (t *Topology) AddLocation(l *Location) {
	t.Locations = append(t.Locations, l)
}

// AddLink connects two locations, assigning the next free port on each.
// At most one link may exist per unordered endpoint pair.
func (t *Topology) AddLink(a, b *Location, distance int) (*Link, error) {
	if a == b {
		return nil, fmt.Errorf("%s: %w", a.Name, util.ErrDuplicateLink)
	}
	if t.GetLink(a, b) != nil {
		return nil, fmt.Errorf("%s <-> %s: %w", a.Name, b.Name, util.ErrDuplicateLink)
	}
	a.LinkCount++
	b.LinkCount++
	link := &Link{
		endpoints: [2]*Location{a, b},
		Distance:  distance,
		ports:     [2]int{a.LinkCount, b.LinkCount},
	}
	t.Links = append(t.Links, link)
	t.maxima = nil
	return link, nil
}

// GetLocation finds a location by name, falling back to IP match (either
// the full prefixed form or the bare address). Returns nil when unknown.
func (t *Topology) GetLocation(nameOrIP string) *Location {
	for _, l := range t.Locations {
		if l.Name == nameOrIP {
			return l
		}
	}
	for _, l := range t.Locations {
		if l.IP == nameOrIP || l.Addr() == nameOrIP {
			return l
		}
	}
	return nil
}

// GetLink returns the link between two locations regardless of direction,
// or nil when they are not adjacent.
func (t *Topology) GetLink(a, b *Location) *Link {
	for _, link := range t.Links {
		if (link.endpoints[0] == a && link.endpoints[1] == b) ||
			(link.endpoints[0] == b && link.endpoints[1] == a) {
			return link
		}
	}
	return nil
}

// Neighbors returns the locations adjacent to l with their connecting links.
func (t *Topology) Neighbors(l *Location) []*Link {
	var out []*Link
	for _, link := range t.Links {
		if link.endpoints[0] == l || link.endpoints[1] == l {
			out = append(out, link)
		}
	}
	return out
}

// PortTo returns the port number on from facing to.
func (t *Topology) PortTo(from, to *Location) (int, error) {
	link := t.GetLink(from, to)
	if link == nil {
		return 0, fmt.Errorf("no link %s <-> %s: %w", from.Name, to.Name, util.ErrNotFound)
	}
	return link.PortFrom(from)
}

// Maxima returns the per-metric maxima across all links, computed lazily
// and invalidated when the link set changes.
func (t *Topology) Maxima() Maxima {
	if t.maxima == nil {
		var m Maxima
		for i, link := range t.Links {
			d, j, b, l := link.Delay(), link.Jitter(), link.Bandwidth(), link.Loss()
			if i == 0 {
				m = Maxima{Delay: d, Jitter: j, Bandwidth: b, Loss: l}
				continue
			}
			if d > m.Delay {
				m.Delay = d
			}
			// Jitter may be negative throughout; the maximum is still the
			// largest observed value, not zero.
			if j > m.Jitter {
				m.Jitter = j
			}
			if b > m.Bandwidth {
				m.Bandwidth = b
			}
			if l > m.Loss {
				m.Loss = l
			}
		}
		t.maxima = &m
	}
	return *t.maxima
}
