package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiserve/geocoord/internal/agent"
	"github.com/optiserve/geocoord/internal/geo"
)

// stubAgent is a scriptable DomainAgent shared by the package tests.
type stubAgent struct {
	name   string
	domain geo.Category
	result geo.AgentResult
	err    error
	delay  time.Duration
	panics bool
}

var _ agent.DomainAgent = (*stubAgent)(nil)

func (s *stubAgent) Name() string         { return s.name }
func (s *stubAgent) Domain() geo.Category { return s.domain }

func (s *stubAgent) Analyze(ctx context.Context, _ geo.UnitOfWork, _ geo.BusinessContext) (geo.AgentResult, error) {
	if s.panics {
		panic("stub agent exploded")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return geo.AgentResult{}, ctx.Err()
		}
	}
	if s.err != nil {
		return geo.AgentResult{}, s.err
	}
	return s.result, nil
}

func okResult(confidence float64, recs ...geo.Recommendation) geo.AgentResult {
	return geo.AgentResult{
		Status:          geo.StatusSuccess,
		Confidence:      confidence,
		Recommendations: recs,
	}
}

func unit(url string) geo.UnitOfWork {
	return geo.UnitOfWork{URL: url, Title: "t", Text: "body"}
}

func TestOrchestrateCollectsFullCrossProduct(t *testing.T) {
	units := []geo.UnitOfWork{unit("https://a.test/"), unit("https://b.test/")}
	agents := []agent.DomainAgent{
		&stubAgent{name: "vis", domain: geo.CategoryVisibility, result: okResult(0.9)},
		&stubAgent{name: "acc", domain: geo.CategoryAccuracy, result: okResult(0.8)},
	}

	got := orchestrate(context.Background(), units, agents, geo.BusinessContext{}, Options{}.withDefaults())

	require.Len(t, got.Calls, 4)
	assert.Empty(t, got.Errors)

	// Stable (unit, agent) order regardless of completion order.
	want := [][2]string{
		{"https://a.test/", "acc"},
		{"https://a.test/", "vis"},
		{"https://b.test/", "acc"},
		{"https://b.test/", "vis"},
	}
	for i, call := range got.Calls {
		assert.Equal(t, want[i][0], call.Unit)
		assert.Equal(t, want[i][1], call.Agent)
		assert.Equal(t, geo.StatusSuccess, call.Result.Status)
	}
}

func TestOrchestrateAttachesProvenance(t *testing.T) {
	// The agent forgets to fill its own name; the dispatcher normalizes.
	agents := []agent.DomainAgent{
		&stubAgent{name: "vis", domain: geo.CategoryVisibility, result: geo.AgentResult{Confidence: 0.7}},
	}

	got := orchestrate(context.Background(), []geo.UnitOfWork{unit("https://a.test/")}, agents, geo.BusinessContext{}, Options{}.withDefaults())

	require.Len(t, got.Calls, 1)
	res := got.Calls[0].Result
	assert.Equal(t, "vis", res.AgentName)
	assert.Equal(t, geo.CategoryVisibility, res.AgentDomain)
	assert.Equal(t, geo.StatusSuccess, res.Status)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestOrchestrateIsolatesAgentFailure(t *testing.T) {
	agents := []agent.DomainAgent{
		&stubAgent{name: "bad", domain: geo.CategoryAccuracy, err: errors.New("backend unreachable")},
		&stubAgent{name: "good", domain: geo.CategoryVisibility, result: okResult(0.9)},
	}

	got := orchestrate(context.Background(), []geo.UnitOfWork{unit("https://a.test/")}, agents, geo.BusinessContext{}, Options{}.withDefaults())

	require.Len(t, got.Calls, 2)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "bad", got.Errors[0].Agent)
	assert.Equal(t, "backend unreachable", got.Errors[0].Message)

	byAgent := map[string]geo.ResultStatus{}
	for _, c := range got.Calls {
		byAgent[c.Agent] = c.Result.Status
	}
	assert.Equal(t, geo.StatusError, byAgent["bad"])
	assert.Equal(t, geo.StatusSuccess, byAgent["good"])
}

func TestOrchestrateRecoversAgentPanic(t *testing.T) {
	agents := []agent.DomainAgent{
		&stubAgent{name: "boom", domain: geo.CategoryVisibility, panics: true},
		&stubAgent{name: "good", domain: geo.CategoryAccuracy, result: okResult(0.8)},
	}

	got := orchestrate(context.Background(), []geo.UnitOfWork{unit("https://a.test/")}, agents, geo.BusinessContext{}, Options{}.withDefaults())

	require.Len(t, got.Calls, 2)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0].Message, "agent panicked")
}

func TestOrchestratePerCallTimeout(t *testing.T) {
	opts := Options{PerCallTimeout: 20 * time.Millisecond}.withDefaults()
	agents := []agent.DomainAgent{
		&stubAgent{name: "slow", domain: geo.CategoryVisibility, delay: 500 * time.Millisecond, result: okResult(0.9)},
		&stubAgent{name: "fast", domain: geo.CategoryAccuracy, result: okResult(0.8)},
	}

	got := orchestrate(context.Background(), []geo.UnitOfWork{unit("https://a.test/")}, agents, geo.BusinessContext{}, opts)

	require.Len(t, got.Calls, 2)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "slow", got.Errors[0].Agent)
	assert.Equal(t, "timeout", got.Errors[0].Message)
}

// concurrencyGauge counts in-flight Analyze calls and records the peak.
type concurrencyGauge struct {
	mu   sync.Mutex
	cur  int
	peak int
}

func (g *concurrencyGauge) enter() {
	g.mu.Lock()
	g.cur++
	if g.cur > g.peak {
		g.peak = g.cur
	}
	g.mu.Unlock()
}

func (g *concurrencyGauge) exit() {
	g.mu.Lock()
	g.cur--
	g.mu.Unlock()
}

// gaugedAgent wraps stubAgent to measure call overlap.
type gaugedAgent struct {
	stubAgent
	gauge *concurrencyGauge
}

func (a *gaugedAgent) Analyze(ctx context.Context, u geo.UnitOfWork, b geo.BusinessContext) (geo.AgentResult, error) {
	a.gauge.enter()
	defer a.gauge.exit()
	return a.stubAgent.Analyze(ctx, u, b)
}

func TestOrchestrateBoundsConcurrency(t *testing.T) {
	opts := Options{MaxConcurrency: 2}.withDefaults()
	gauge := &concurrencyGauge{}

	agents := []agent.DomainAgent{
		&gaugedAgent{stubAgent{name: "vis", domain: geo.CategoryVisibility, delay: 10 * time.Millisecond, result: okResult(0.9)}, gauge},
		&gaugedAgent{stubAgent{name: "acc", domain: geo.CategoryAccuracy, delay: 10 * time.Millisecond, result: okResult(0.8)}, gauge},
	}
	units := []geo.UnitOfWork{
		unit("https://a.test/"), unit("https://b.test/"),
		unit("https://c.test/"), unit("https://d.test/"),
	}

	got := orchestrate(context.Background(), units, agents, geo.BusinessContext{}, opts)

	require.Len(t, got.Calls, 8)
	assert.Empty(t, got.Errors)
	assert.Greater(t, gauge.peak, 0)
	assert.LessOrEqual(t, gauge.peak, opts.MaxConcurrency)
}

func TestOrchestrateOverallTimeout(t *testing.T) {
	opts := Options{
		OverallTimeout: 30 * time.Millisecond,
		PerCallTimeout: time.Second,
		MaxConcurrency: 1,
	}.withDefaults()

	var agents []agent.DomainAgent
	for _, name := range []string{"one", "two", "three"} {
		agents = append(agents, &stubAgent{name: name, domain: geo.CategoryVisibility, delay: 200 * time.Millisecond, result: okResult(0.9)})
	}

	got := orchestrate(context.Background(), []geo.UnitOfWork{unit("https://a.test/")}, agents, geo.BusinessContext{}, opts)

	// Every dispatched pair still comes back, degraded rather than lost.
	require.Len(t, got.Calls, 3)
	require.NotEmpty(t, got.Errors)
	for _, e := range got.Errors {
		assert.Contains(t, e.Message, "deadline exceeded")
	}
}
