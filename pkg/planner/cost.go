// Package planner computes per-stream paths through the topology: link cost
// shaping, A* search, requirement checks with priority escalation, and
// utilization bookkeeping.
package planner

import (
	"math"

	"github.com/oplik0/scht-lab/pkg/stream"
	"github.com/oplik0/scht-lab/pkg/topo"
)

// inf marks a link that must not carry the stream.
var inf = math.Inf(1)

// adjustedLoss returns the link loss, inflated for UDP streams whose rate
// exceeds the remaining link bandwidth.
func adjustedLoss(link *topo.Link, streamType stream.Type, rate int) float64 {
	loss := link.Loss()
	if streamType == stream.UDP {
		if remaining := link.Remaining(); remaining < float64(rate) {
			loss += (float64(rate) - remaining) / float64(rate)
		}
	}
	return loss
}

// Cost maps a link to its scalar traversal cost for one stream.
//
// Hard bounds are enforced first and independently of the weights, so a
// stream that states only requirements is still admission-checked:
// insufficient remaining bandwidth, a delay cap exceeded by the link, or a
// loss cap exceeded by the (UDP-adjusted) link loss all make the link
// untraversable. With no priorities at all the cost is the raw distance in
// kilometers. Otherwise five weighted contributions are summed, each zero
// when its weight is absent or zero. The delay, jitter, loss and bandwidth
// terms are infinite when their metric is zero while the weight is not (a
// perfect link is costless only in the limit); the congestion term is
// utilization times weight over bandwidth, so an idle link adds nothing.
func Cost(link *topo.Link, pri *stream.Priorities, req *stream.Requirements, streamType stream.Type, rate int, maxima topo.Maxima) float64 {
	if link.Remaining() < req.BandwidthMin() {
		return inf
	}
	loss := adjustedLoss(link, streamType, rate)
	if req != nil && req.Loss != nil && loss > *req.Loss {
		return inf
	}
	if req != nil && req.Delay != nil && link.Delay() > *req.Delay {
		return inf
	}

	if pri == nil {
		return float64(link.Distance)
	}

	total := 0.0

	if w := stream.Weight(pri.Delay); w != 0 {
		total += reciprocal(w, link.Delay(), maxima.Delay)
	}
	if w := stream.Weight(pri.Jitter); w != 0 {
		// Negative jitter flows through unchanged; the resulting negative
		// contribution biases the search toward short links.
		total += reciprocal(w, link.Jitter(), maxima.Jitter)
	}
	if w := stream.Weight(pri.Bandwidth); w != 0 {
		bw := link.Bandwidth()
		if bw <= 0 {
			return inf
		}
		total += math.Pow(maxima.Bandwidth/bw, w)
	}
	if w := stream.Weight(pri.Loss); w != 0 {
		total += reciprocal(w, loss, maxima.Loss)
	}
	if w := stream.Weight(pri.Congestion); w != 0 && link.Utilization != 0 {
		total += link.Utilization * w / link.Bandwidth()
	}

	return total
}

// reciprocal computes weight / (metric / max), guarding the zero cases:
// a zero metric or zero normalization denominator yields infinity.
func reciprocal(weight, metric, max float64) float64 {
	if metric == 0 || max == 0 {
		return inf
	}
	return weight / (metric / max)
}

// CostFor builds the per-stream cost callable handed to the search,
// capturing the stream parameters and the frozen maxima.
func CostFor(pri *stream.Priorities, req *stream.Requirements, streamType stream.Type, rate int, maxima topo.Maxima) func(*topo.Link) float64 {
	return func(link *topo.Link) float64 {
		return Cost(link, pri, req, streamType, rate, maxima)
	}
}

// CostVariant selects one of the fixed single-metric cost functions used by
// offline all-pairs analysis.
type CostVariant string

const (
	VariantDelay     CostVariant = "delay"
	VariantJitter    CostVariant = "jitter"
	VariantBandwidth CostVariant = "bandwidth"
	VariantLoss      CostVariant = "loss"
	VariantCombined  CostVariant = "combined"
)

// Variants lists the valid all-pairs cost variants.
func Variants() []CostVariant {
	return []CostVariant{VariantDelay, VariantJitter, VariantBandwidth, VariantLoss, VariantCombined}
}

// VariantCost returns the link cost function for an analysis variant.
// Unknown variants fall back to raw distance.
func VariantCost(v CostVariant) func(*topo.Link) float64 {
	switch v {
	case VariantDelay:
		return func(l *topo.Link) float64 { return l.Delay() }
	case VariantJitter:
		return func(l *topo.Link) float64 { return l.Jitter() }
	case VariantBandwidth:
		return func(l *topo.Link) float64 { return l.Bandwidth() }
	case VariantLoss:
		return func(l *topo.Link) float64 { return l.Loss() }
	case VariantCombined:
		return func(l *topo.Link) float64 {
			return l.Delay() + l.Jitter()*2 + l.Bandwidth()/100 + l.Loss()*5
		}
	}
	return func(l *topo.Link) float64 { return float64(l.Distance) }
}
