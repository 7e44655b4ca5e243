package planner

import (
	"context"
	"math"
	"testing"

	"github.com/oplik0/scht-lab/pkg/stream"
	"github.com/oplik0/scht-lab/pkg/topo"
)

func loadTopo(t *testing.T, doc string) *topo.Topology {
	t.Helper()
	tp, err := topo.Load(context.Background(), []byte(doc), nil)
	if err != nil {
		t.Fatalf("topology: %v", err)
	}
	return tp
}

func f(v float64) *float64 { return &v }

// The X-Y link: 200 km, both populations 1M. Delay 1 ms, jitter 0,
// bandwidth 125 Mbps.
const xyDoc = `{
  "X": {"population": 1000000, "neighbors": {"Y": 200}},
  "Y": {"population": 1000000, "neighbors": {"X": 200}}
}`

// ============================================================================
// Cost Function Tests
// ============================================================================

func TestCost_NoPrioritiesIsDistance(t *testing.T) {
	tp := loadTopo(t, xyDoc)
	c := Cost(tp.Links[0], nil, &stream.Requirements{}, stream.TCP, 10, tp.Maxima())
	if c != 200 {
		t.Errorf("cost = %v, want raw distance 200", c)
	}
}

func TestCost_BandwidthAdmission(t *testing.T) {
	tp := loadTopo(t, xyDoc)
	link := tp.Links[0]
	req := &stream.Requirements{Bandwidth: f(100)}

	// 125 remaining >= 100 floor: admitted even without priorities.
	if c := Cost(link, nil, req, stream.TCP, 50, tp.Maxima()); math.IsInf(c, 1) {
		t.Error("admissible link should not cost infinity")
	}

	// After committing 50 Mbps, 75 < 100: hard admission failure.
	link.IncreaseUtilization(50)
	if c := Cost(link, nil, req, stream.TCP, 50, tp.Maxima()); !math.IsInf(c, 1) {
		t.Errorf("cost = %v, want +Inf on admission failure", c)
	}
}

func TestCost_DelayCap(t *testing.T) {
	tp := loadTopo(t, xyDoc)
	req := &stream.Requirements{Delay: f(0.5)}
	// Link delay is 1 ms > 0.5 ms cap.
	if c := Cost(tp.Links[0], &stream.Priorities{Delay: f(1)}, req, stream.TCP, 10, tp.Maxima()); !math.IsInf(c, 1) {
		t.Errorf("cost = %v, want +Inf over the delay cap", c)
	}
}

func TestCost_UDPLossInflation(t *testing.T) {
	// Bandwidth: (2.2e6 + 10e6)/80000 - 400/8 = 152.5 - 50 = 102.5... pick
	// populations so bandwidth lands at 40 Mbps: pop 3e5 both:
	// (3e5+3e5+3e6)/80000 - 400/8 = 45 - 50 < 0. Use distance 40:
	// (3.6e6)/80000 - 40/8 = 45 - 5 = 40.
	tp := loadTopo(t, `{
	  "A": {"population": 300000, "neighbors": {"B": 40}},
	  "B": {"population": 300000, "neighbors": {"A": 40}}
	}`)
	link := tp.Links[0]
	if link.Bandwidth() != 40 {
		t.Fatalf("fixture bandwidth = %v, want 40", link.Bandwidth())
	}

	req := &stream.Requirements{Loss: f(0.5)}
	// UDP at 100 Mbps over a 40 Mbps link: loss inflated by 0.6 > 0.5 cap.
	if c := Cost(link, nil, req, stream.UDP, 100, tp.Maxima()); !math.IsInf(c, 1) {
		t.Errorf("cost = %v, want +Inf when adjusted loss exceeds the bound", c)
	}
	// Same stream over TCP: no inflation, tiny real loss passes.
	if c := Cost(link, nil, req, stream.TCP, 100, tp.Maxima()); math.IsInf(c, 1) {
		t.Error("TCP stream must not be loss-inflated")
	}
}

func TestCost_Contributions(t *testing.T) {
	tp := loadTopo(t, `{
	  "A": {"population": 1000000, "neighbors": {"B": 400, "C": 800}},
	  "B": {"population": 1000000, "neighbors": {}},
	  "C": {"population": 1000000, "neighbors": {}}
	}`)
	maxima := tp.Maxima()
	ab := tp.GetLink(tp.GetLocation("A"), tp.GetLocation("B"))

	// Delay contribution: w / (d/maxD) = 2 / (2/4) = 4.
	got := Cost(ab, &stream.Priorities{Delay: f(2)}, &stream.Requirements{}, stream.TCP, 10, maxima)
	if math.Abs(got-4) > 1e-9 {
		t.Errorf("delay contribution = %v, want 4", got)
	}

	// Bandwidth contribution uses exponent semantics: (maxBW/bw)^w.
	bw := ab.Bandwidth()
	want := math.Pow(maxima.Bandwidth/bw, 3)
	got = Cost(ab, &stream.Priorities{Bandwidth: f(3)}, &stream.Requirements{}, stream.TCP, 10, maxima)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("bandwidth contribution = %v, want %v", got, want)
	}

	// Congestion contribution: util * w / bw.
	ab.IncreaseUtilization(30)
	want = 30 * 5 / bw
	got = Cost(ab, &stream.Priorities{Congestion: f(5)}, &stream.Requirements{}, stream.TCP, 10, maxima)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("congestion contribution = %v, want %v", got, want)
	}
}

func TestCost_ZeroWeightContributesNothing(t *testing.T) {
	tp := loadTopo(t, xyDoc)
	pri := &stream.Priorities{Delay: f(0), Loss: f(0), Congestion: f(0)}
	if c := Cost(tp.Links[0], pri, &stream.Requirements{}, stream.TCP, 10, tp.Maxima()); c != 0 {
		t.Errorf("cost = %v, want 0 with all-zero weights", c)
	}
}

func TestCost_ZeroMetricWithWeightIsInfinite(t *testing.T) {
	tp := loadTopo(t, xyDoc)
	// The 200 km link has jitter ln(1) = 0; a weighted jitter term on a
	// zero metric is infinite.
	if c := Cost(tp.Links[0], &stream.Priorities{Jitter: f(1)}, &stream.Requirements{}, stream.TCP, 10, tp.Maxima()); !math.IsInf(c, 1) {
		t.Errorf("cost = %v, want +Inf for zero jitter with non-zero weight", c)
	}
}

func TestCost_NegativeJitterFlowsThrough(t *testing.T) {
	tp := loadTopo(t, `{
	  "A": {"population": 1000000, "neighbors": {"B": 100, "C": 400}},
	  "B": {"population": 1000000, "neighbors": {}},
	  "C": {"population": 1000000, "neighbors": {}}
	}`)
	maxima := tp.Maxima()
	ab := tp.GetLink(tp.GetLocation("A"), tp.GetLocation("B"))
	// 100 km: jitter negative, maxima jitter positive (400 km link), so the
	// contribution is negative and is accepted as-is. Populations keep the
	// link bandwidth positive (137.5 Mbps) so admission passes.
	c := Cost(ab, &stream.Priorities{Jitter: f(1)}, &stream.Requirements{}, stream.TCP, 10, maxima)
	if c >= 0 || math.IsInf(c, -1) {
		t.Errorf("cost = %v, want finite negative", c)
	}
}

// ============================================================================
// Variant Cost Tests
// ============================================================================

func TestVariantCost_Combined(t *testing.T) {
	tp := loadTopo(t, xyDoc)
	l := tp.Links[0]
	want := l.Delay() + l.Jitter()*2 + l.Bandwidth()/100 + l.Loss()*5
	if got := VariantCost(VariantCombined)(l); math.Abs(got-want) > 1e-12 {
		t.Errorf("combined = %v, want %v", got, want)
	}
	if got := VariantCost(VariantDelay)(l); got != l.Delay() {
		t.Errorf("delay variant = %v", got)
	}
	if got := VariantCost(CostVariant("bogus"))(l); got != float64(l.Distance) {
		t.Errorf("unknown variant should fall back to distance, got %v", got)
	}
}
