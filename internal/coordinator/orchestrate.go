package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/optiserve/geocoord/internal/agent"
	"github.com/optiserve/geocoord/internal/geo"
)

// orchestrate runs the full cross-product of agents × units under bounded
// concurrency and collects every result. One goroutine is dispatched per
// (unit, agent) pair; a weighted semaphore enforces the concurrency ceiling
// and a single collector drains the shared completion channel. A failed,
// panicked or timed-out call contributes a degraded StatusError result and
// never aborts sibling calls.
//
// The returned calls are stable-sorted by (unit, agent name) so every
// downstream stage is deterministic given the same inputs.
func orchestrate(ctx context.Context, units []geo.UnitOfWork, agents []agent.DomainAgent, bctx geo.BusinessContext, opts Options) OrchestrationResult {
	ctx, cancel := context.WithTimeout(ctx, opts.OverallTimeout)
	defer cancel()

	total := len(units) * len(agents)
	sem := semaphore.NewWeighted(int64(opts.MaxConcurrency))
	done := make(chan AgentCall, total)

	for _, unit := range units {
		for _, ag := range agents {
			go func(unit geo.UnitOfWork, ag agent.DomainAgent) {
				done <- dispatch(ctx, sem, unit, ag, bctx, opts.PerCallTimeout)
			}(unit, ag)
		}
	}

	// Single collector; the channel is the only shared state.
	result := OrchestrationResult{Calls: make([]AgentCall, 0, total)}
	for i := 0; i < total; i++ {
		result.Calls = append(result.Calls, <-done)
	}

	sort.Slice(result.Calls, func(i, j int) bool {
		a, b := result.Calls[i], result.Calls[j]
		if a.Unit != b.Unit {
			return a.Unit < b.Unit
		}
		return a.Agent < b.Agent
	})

	for _, call := range result.Calls {
		if call.Result.Status == geo.StatusError {
			msg := "agent reported no usable output"
			if len(call.Result.Errors) > 0 {
				msg = call.Result.Errors[0]
			}
			result.Errors = append(result.Errors, CallError{
				Unit:    call.Unit,
				Agent:   call.Agent,
				Message: msg,
			})
		}
	}

	return result
}

// dispatch runs one agent call under the semaphore and per-call timeout,
// translating every failure mode into a degraded result.
func dispatch(ctx context.Context, sem *semaphore.Weighted, unit geo.UnitOfWork, ag agent.DomainAgent, bctx geo.BusinessContext, perCall time.Duration) AgentCall {
	call := AgentCall{Unit: unit.URL, Agent: ag.Name()}
	start := time.Now()

	if err := sem.Acquire(ctx, 1); err != nil {
		// Overall deadline fired while queued.
		call.Result = geo.ErrorResult(ag.Name(), ag.Domain(), "cancelled: overall deadline exceeded", time.Since(start))
		return call
	}
	defer sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, perCall)
	defer cancel()

	res, err := safeAnalyze(callCtx, ag, unit, bctx)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			msg = "timeout"
		} else if ctx.Err() != nil {
			msg = "cancelled: overall deadline exceeded"
		}
		log.Printf("orchestrate: agent %s failed on %s: %s", ag.Name(), unit.URL, msg)
		call.Result = geo.ErrorResult(ag.Name(), ag.Domain(), msg, elapsed)

	default:
		// Normalize provenance so the merger never sees anonymous results.
		res.AgentName = ag.Name()
		res.AgentDomain = ag.Domain()
		if res.Duration == 0 {
			res.Duration = elapsed
		}
		if res.Status == "" {
			res.Status = geo.StatusSuccess
		}
		call.Result = res
	}

	return call
}

// safeAnalyze invokes Analyze and converts a panic into an error, keeping a
// misbehaving agent from taking down the run.
func safeAnalyze(ctx context.Context, ag agent.DomainAgent, unit geo.UnitOfWork, bctx geo.BusinessContext) (geo.AgentResult, error) {
	type outcome struct {
		res geo.AgentResult
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("agent panicked: %v", r)}
			}
		}()
		r, e := ag.Analyze(ctx, unit, bctx)
		ch <- outcome{r, e}
	}()

	select {
	case out := <-ch:
		return out.res, out.err
	case <-ctx.Done():
		// The agent is expected to observe ctx and return promptly; we do
		// not wait for stragglers beyond the deadline.
		return geo.AgentResult{}, ctx.Err()
	}
}
