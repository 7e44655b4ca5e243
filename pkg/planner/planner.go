package planner

import (
	"context"
	"fmt"
	"math"

	"github.com/oplik0/scht-lab/pkg/flow"
	"github.com/oplik0/scht-lab/pkg/stream"
	"github.com/oplik0/scht-lab/pkg/topo"
	"github.com/oplik0/scht-lab/pkg/util"
)

// DefaultMaxAttempts bounds the per-stream retry loop.
const DefaultMaxAttempts = 10

// PathMetrics are the aggregate QoS figures of a chosen path.
type PathMetrics struct {
	Delay     float64
	Jitter    float64
	Loss      float64
	Bandwidth float64
}

// aggregate computes path totals: delays and jitters add, loss composes as
// 1 - prod(1 - l), bandwidth is the bottleneck minimum. A zero-link path
// has no constraints: zero totals and unbounded bandwidth.
func aggregate(links []*topo.Link) PathMetrics {
	m := PathMetrics{Bandwidth: math.Inf(1)}
	success := 1.0
	for _, l := range links {
		m.Delay += l.Delay()
		m.Jitter += l.Jitter()
		success *= 1 - l.Loss()
		if bw := l.Bandwidth(); bw < m.Bandwidth {
			m.Bandwidth = bw
		}
	}
	m.Loss = 1 - success
	return m
}

// StreamResult records the outcome of planning one stream.
type StreamResult struct {
	Stream   stream.Stream
	Path     []*topo.Location
	Links    []*topo.Link
	Metrics  PathMetrics
	Attempts int
	Err      error
}

// Routed reports whether the stream was placed on a path.
func (r *StreamResult) Routed() bool {
	return r.Err == nil
}

// PathNames returns the path as city names, for display and audit records.
func (r *StreamResult) PathNames() []string {
	names := make([]string, len(r.Path))
	for i, l := range r.Path {
		names[i] = l.Name
	}
	return names
}

// Result is the outcome of a full planning run: the deduplicated rule set
// of every accepted stream plus per-stream diagnostics.
type Result struct {
	Flows   *flow.Set
	Streams []StreamResult
}

// Unrouted returns the streams the planner gave up on.
func (r *Result) Unrouted() []StreamResult {
	var out []StreamResult
	for _, s := range r.Streams {
		if !s.Routed() {
			out = append(out, s)
		}
	}
	return out
}

// Planner places streams on a topology one at a time. Utilization updates
// from earlier streams are visible to later ones, so input order is the
// placement policy.
type Planner struct {
	topo        *topo.Topology
	maxAttempts int
}

// New creates a Planner. maxAttempts <= 0 selects the default bound.
func New(t *topo.Topology, maxAttempts int) *Planner {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Planner{topo: t, maxAttempts: maxAttempts}
}

// Plan routes the streams in order and synthesizes their forwarding rules.
// The run is best-effort: a stream that cannot be placed is recorded with a
// diagnostic and planning continues. Cancelling the context aborts the
// current stream's attempt loop and returns the rules produced so far
// alongside the context error.
func (p *Planner) Plan(ctx context.Context, streams []stream.Stream) (*Result, error) {
	// Normalization denominators are frozen here so every stream of the run
	// sees the same maxima.
	maxima := p.topo.Maxima()

	result := &Result{Flows: flow.NewSet()}
	for _, st := range streams {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Streams = append(result.Streams, p.planStream(ctx, st, maxima, result.Flows))
	}
	return result, ctx.Err()
}

func (p *Planner) planStream(ctx context.Context, st stream.Stream, maxima topo.Maxima, flows *flow.Set) StreamResult {
	res := StreamResult{Stream: st}
	log := util.WithStream(st.Src, st.Dst)

	src := p.topo.GetLocation(st.Src)
	dst := p.topo.GetLocation(st.Dst)
	if src == nil || dst == nil {
		res.Err = fmt.Errorf("stream %s: endpoint unknown: %w", st.String(), util.ErrNotFound)
		log.Warn(res.Err)
		return res
	}

	// Escalation mutates a copy; the caller's definition stays intact.
	pri := st.Priorities.Clone()
	if st.Priorities == nil {
		pri = nil
	}
	req := st.Requirements
	if req == nil {
		req = &stream.Requirements{}
	}

	// maxAttempts bounded tries plus one final unbounded-marker try.
	for attempt := 1; attempt <= p.maxAttempts+1; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			res.Attempts = attempt - 1
			return res
		}
		res.Attempts = attempt

		path := AStar(p.topo, src, dst, CostFor(pri, req, st.Type, st.Rate, maxima))
		if len(path) == 0 {
			res.Err = fmt.Errorf("stream %s: %w", st.String(), util.ErrNoPath)
			log.Warn(res.Err)
			return res
		}
		links, err := p.pathLinks(path)
		if err != nil {
			res.Err = fmt.Errorf("stream %s: %w", st.String(), err)
			log.Warn(res.Err)
			return res
		}

		metrics := aggregate(links)
		if st.Type == stream.UDP && metrics.Bandwidth < float64(st.Rate) {
			metrics.Loss += (float64(st.Rate) - metrics.Bandwidth) / float64(st.Rate)
		}
		res.Metrics = metrics

		violated := violations(metrics, req)
		if len(violated) == 0 {
			pathFlows, err := flow.PathRules(p.topo, path)
			if err != nil {
				res.Err = fmt.Errorf("stream %s: %w", st.String(), err)
				return res
			}
			flows.Add(pathFlows...)
			for _, l := range links {
				l.IncreaseUtilization(float64(st.Rate))
			}
			res.Path = path
			res.Links = links
			log.WithField("attempts", attempt).Debugf("routed via %v", res.PathNames())
			return res
		}

		if pri == nil {
			pri = &stream.Priorities{}
		}
		escalate(pri, violated, attempt)
		log.WithField("attempt", attempt).Debugf("requirements unmet (%v), escalating priorities", violated)
	}

	res.Err = &util.UnroutableError{
		Src:      st.Src,
		Dst:      st.Dst,
		Attempts: res.Attempts,
		Reason:   "requirements unmet on every attempted path",
	}
	log.Warn(res.Err)
	return res
}

// pathLinks maps consecutive path nodes onto their links.
func (p *Planner) pathLinks(path []*topo.Location) ([]*topo.Link, error) {
	links := make([]*topo.Link, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		link := p.topo.GetLink(path[i], path[i+1])
		if link == nil {
			return nil, fmt.Errorf("no link %s <-> %s: %w", path[i].Name, path[i+1].Name, util.ErrNoPath)
		}
		links = append(links, link)
	}
	return links, nil
}

// violations lists the requirement dimensions the path totals exceed.
// Bandwidth never appears: inadmissible links cost infinity in the search,
// so a returned path either satisfies the floor or does not exist.
func violations(m PathMetrics, req *stream.Requirements) []string {
	var out []string
	if req.Delay != nil && m.Delay > *req.Delay {
		out = append(out, "delay")
	}
	if req.Jitter != nil && m.Jitter > *req.Jitter {
		out = append(out, "jitter")
	}
	if req.Loss != nil && m.Loss > *req.Loss {
		out = append(out, "loss")
	}
	return out
}

// escalate multiplies the weight of each violated dimension by 2^attempt,
// seeding absent weights at 1 so an unweighted dimension can still be
// escalated into relevance.
func escalate(pri *stream.Priorities, violated []string, attempt int) {
	factor := math.Pow(2, float64(attempt))
	bump := func(w *float64) *float64 {
		base := 1.0
		if w != nil && *w != 0 {
			base = *w
		}
		v := base * factor
		return &v
	}
	for _, dim := range violated {
		switch dim {
		case "delay":
			pri.Delay = bump(pri.Delay)
		case "jitter":
			pri.Jitter = bump(pri.Jitter)
		case "loss":
			pri.Loss = bump(pri.Loss)
		}
	}
}
