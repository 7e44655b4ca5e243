package flow

import (
	"fmt"
	"strconv"

	"github.com/oplik0/scht-lab/pkg/topo"
	"github.com/oplik0/scht-lab/pkg/util"
)

// dstCriterion returns the destination-match criterion for an address at
// host prefix length, typed by address family.
func dstCriterion(ip string) Criterion {
	if util.IsIPv6(ip) {
		return Criterion{Type: "IPV6_DST", IP: util.HostPrefix(ip)}
	}
	return Criterion{Type: "IPV4_DST", IP: util.HostPrefix(ip)}
}

// srcCriterion is the source-match counterpart of dstCriterion.
func srcCriterion(ip string) Criterion {
	if util.IsIPv6(ip) {
		return Criterion{Type: "IPV6_SRC", IP: util.HostPrefix(ip)}
	}
	return Criterion{Type: "IPV4_SRC", IP: util.HostPrefix(ip)}
}

// TransitRules emits one rule per hop of the path, each matching the
// end-to-end src/dst pair and outputting toward the next hop. The path is
// directional; callers wanting the return direction pass the reversed path.
func TransitRules(t *topo.Topology, path []*topo.Location) ([]Flow, error) {
	if len(path) < 2 {
		return nil, nil
	}
	src, dst := path[0], path[len(path)-1]

	flows := make([]Flow, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		current, nexthop := path[i], path[i+1]
		port, err := t.PortTo(current, nexthop)
		if err != nil {
			return nil, fmt.Errorf("transit rule at %s: %w", current.Name, err)
		}
		flows = append(flows, Flow{
			DeviceID:    current.OFName(),
			Priority:    TransitPriority,
			Timeout:     0,
			IsPermanent: true,
			Selector: Selector{Criteria: []Criterion{
				{Type: "ETH_TYPE", EthType: util.EthType(dst.IP)},
				dstCriterion(dst.IP),
				srcCriterion(src.IP),
			}},
			Treatment: Treatment{Instructions: []Instruction{
				{Type: "OUTPUT", Port: strconv.Itoa(port)},
			}},
		})
	}
	return flows, nil
}

// EndpointRule emits the host-delivery rule for a switch: any packet
// addressed to the switch's own host goes out port 1, regardless of path.
func EndpointRule(l *topo.Location) Flow {
	return Flow{
		DeviceID:    l.OFName(),
		Priority:    EndpointPriority,
		Timeout:     0,
		IsPermanent: true,
		Selector: Selector{Criteria: []Criterion{
			{Type: "ETH_TYPE", EthType: util.EthType(l.IP)},
			dstCriterion(l.IP),
		}},
		Treatment: Treatment{Instructions: []Instruction{
			{Type: "OUTPUT", Port: HostPort},
		}},
	}
}

// PathRules emits the full rule set for an accepted path: transit rules for
// the forward and reverse directions plus an endpoint-delivery rule at every
// switch on the path.
func PathRules(t *topo.Topology, path []*topo.Location) ([]Flow, error) {
	forward, err := TransitRules(t, path)
	if err != nil {
		return nil, err
	}
	reversed := make([]*topo.Location, len(path))
	for i, l := range path {
		reversed[len(path)-1-i] = l
	}
	backward, err := TransitRules(t, reversed)
	if err != nil {
		return nil, err
	}

	flows := append(forward, backward...)
	for _, l := range path {
		flows = append(flows, EndpointRule(l))
	}
	return flows, nil
}
