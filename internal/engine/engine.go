// Package engine implements the execution engine: per campaign it loads a
// bundle, builds the method catalog, and drives a bounded number of fuzzing
// iterations, each constructing a deploy-then-messages trace against a
// Sandbox, checking properties after every successful step, and feeding
// any failure to the shrinker (internal/shrink) before continuing.
package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"contractfuzz/internal/abi"
	"contractfuzz/internal/catalog"
	"contractfuzz/internal/constants"
	"contractfuzz/internal/observe"
	"contractfuzz/internal/rng"
	"contractfuzz/internal/sandbox"
	"contractfuzz/internal/shrink"
	"contractfuzz/internal/snapshot"
	"contractfuzz/internal/trace"
	"contractfuzz/pkg/bundle"
)

// Config is the subset of the configuration surface the
// engine itself consumes. The CLI layer is responsible for translating
// pkg/config.Config and the bundle's accounts into this shape.
type Config struct {
	Seed                    uint64
	FailFast                bool
	MaxRounds               uint64
	Budget                  trace.Balance
	Accounts                []trace.AccountId
	OnlyMutable             bool
	MaxSequenceTypeSize     int
	MaxNumberOfTransactions int
	MaxOptimizationRounds   int
	GasLimit                uint64
	PropertyPrefix          string
	FuzzPropertyMaxRounds   int
	SnapshotCacheCapacity   int
}

// canonicalFalse is the Ok(false) Result encoding a property dry-run check
// treats as a failure.
var canonicalFalse = []byte{0x00, 0x00}

// Engine orchestrates one fuzzing campaign.
type Engine struct {
	cfg     Config
	hf      sandbox.HashFunction
	code    []byte
	catalog *catalog.Catalog
	gen     *abi.Generator
	cache   *snapshot.Cache
	rng     *rng.Source
	camp    *observe.CampaignData
	shr     *shrink.Shrinker

	newSandbox func() sandbox.Sandbox
	sb         sandbox.Sandbox

	log *logrus.Entry
}

// New builds an Engine from a loaded Bundle and Config. newSandbox
// constructs a fresh Sandbox instance; the engine calls it once up front,
// again whenever the genesis snapshot has to be built, and for every
// shrinking replay, so implementations should be cheap
// (WasmerSandbox and testutil.FakeSandbox both are).
func New(b *bundle.Bundle, cfg Config, newSandbox func() sandbox.Sandbox) (*Engine, error) {
	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("engine: configuration must declare at least one account")
	}

	pool := constants.Default()
	pool.ExtendFromCode(b.Code)

	cat := catalog.Build(b.Methods, catalog.Options{
		OnlyMutable:    cfg.OnlyMutable,
		PropertyPrefix: cfg.PropertyPrefix,
	})
	if len(cat.Constructors) == 0 {
		return nil, fmt.Errorf("engine: bundle declares no constructors")
	}

	gen := abi.NewGenerator(b.Registry, pool, abi.Limits{MaxSequenceTypeSize: cfg.MaxSequenceTypeSize})

	labels := make([]string, len(cat.Properties))
	for i, p := range cat.Properties {
		labels[i] = p.Label
	}

	e := &Engine{
		cfg:        cfg,
		hf:         sandbox.ParseHashFunction(b.HashFunctionID),
		code:       b.Code,
		catalog:    cat,
		gen:        gen,
		cache:      snapshot.NewCache(cfg.SnapshotCacheCapacity),
		rng:        rng.New(cfg.Seed),
		camp:       observe.New(labels),
		shr:        shrink.New(cat, gen),
		newSandbox: newSandbox,
		sb:         newSandbox(),
		log:        logrus.WithField("component", "engine"),
	}
	return e, nil
}

// Campaign returns the shared observation state for external sinks
// (internal/output) to poll.
func (e *Engine) Campaign() *observe.CampaignData { return e.camp }

// Catalog returns the campaign's method catalog, used by output sinks to
// decode selector-prefixed call data for display.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Run drives up to cfg.MaxRounds iterations, stopping early if ctx is
// canceled or fail_fast is set and a new failure was just observed.
func (e *Engine) Run(ctx context.Context) error {
	e.camp.SetStatus(observe.InProgress)
	for round := uint64(0); round < e.cfg.MaxRounds; round++ {
		select {
		case <-ctx.Done():
			e.camp.SetFatalError(ctx.Err())
			return ctx.Err()
		default:
		}

		newFailure, err := e.runIteration()
		if err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{"campaign_id": e.camp.Read().RunID, "iteration": round}).Error("fatal error during iteration")
			e.camp.SetFatalError(err)
			return err
		}
		e.camp.IncrIteration()

		if newFailure && e.cfg.FailFast {
			e.log.Info("fail_fast set and a new failure was observed, stopping campaign")
			break
		}
	}

	e.shrinkFailures()
	e.camp.SetStatus(observe.Finished)
	return nil
}

// runIteration builds and executes one deploy-then-messages trace. It
// returns true if a failure was recorded during the iteration, whether or
// not its key already had a witness.
func (e *Engine) runIteration() (bool, error) {
	baseline, err := e.ensureBaseline()
	if err != nil {
		return false, err
	}
	e.sb.RestoreSnapshot(baseline)

	newFailure := false

	caller := e.pickAccount()
	ctor := e.catalog.Constructors[e.rng.Choice(len(e.catalog.Constructors))]
	salt := e.drawSalt()
	data, err := e.gen.GenerateCall(ctor.Selector, ctor.ArgTypes, e.rng)
	if abi.IsUnsupportedType(err) {
		e.log.WithError(err).Debug("constructor arg generation rejected, abandoning iteration")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("generate constructor call: %w", err)
	}
	endowment := e.drawEndowment(ctor.Payable)

	codeHash := sandbox.CodeHash(e.hf, e.code)
	addr := sandbox.AddressOf(e.hf, caller, codeHash, data, salt)

	deploy := trace.Deploy{
		Caller: caller, Endowment: endowment, Code: e.code, Data: data,
		Salt: salt, CodeHash: codeHash, Address: addr,
	}
	current := trace.Trace{Deploy: deploy}
	h := trace.HashOf(current)

	if snap, ok := e.cache.Get(h); ok {
		e.sb.RestoreSnapshot(snap)
	} else {
		e.sb.RestoreSnapshot(baseline)
		outcome, err := e.sb.Deploy(deploy.Code, deploy.Endowment, deploy.Data, deploy.Salt, deploy.Caller, e.cfg.GasLimit)
		if trapped, ok := asTrapped(err); ok {
			e.recordFailure(current, shrink.Reason{Kind: shrink.KindTrapped, Detail: trapped.Reason})
			return true, nil
		}
		if err != nil {
			return false, fmt.Errorf("sandbox transport error during deploy: %w", err)
		}
		if outcome.Result.Reverted() {
			return false, nil
		}
		e.cache.Put(h, e.sb.TakeSnapshot())
	}

	if e.checkProperties(current) {
		newFailure = true
		if e.cfg.FailFast {
			return true, nil
		}
	}

	for i := 0; i < e.cfg.MaxNumberOfTransactions; i++ {
		msgCaller := e.pickAccount()
		m := e.catalog.Messages[e.rng.Choice(len(e.catalog.Messages))]
		input, err := e.gen.GenerateCall(m.Selector, m.ArgTypes, e.rng)
		if abi.IsUnsupportedType(err) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("generate message call: %w", err)
		}
		endowment := e.drawEndowment(m.Payable)

		candidate := current.WithMessages(append(append([]trace.Entry(nil), current.Messages...),
			trace.MessageEntry(trace.Message{Caller: msgCaller, Callee: deploy.Address, Endowment: endowment, Input: input})))
		ch := trace.HashOf(candidate)

		if snap, ok := e.cache.Get(ch); ok {
			e.sb.RestoreSnapshot(snap)
			current = candidate
		} else {
			prevSnap, ok := e.cache.Get(trace.HashOf(current))
			if !ok {
				return false, fmt.Errorf("engine: internal invariant violated, no cached snapshot for current trace prefix")
			}
			e.sb.RestoreSnapshot(prevSnap)
			outcome, err := e.sb.Call(deploy.Address, endowment, input, msgCaller, e.cfg.GasLimit, sandbox.Enforced)
			if trapped, ok := asTrapped(err); ok {
				e.recordFailure(candidate, shrink.Reason{Kind: shrink.KindTrapped, Detail: trapped.Reason})
				newFailure = true
				break
			}
			if err != nil {
				return false, fmt.Errorf("sandbox transport error during call: %w", err)
			}
			if outcome.Reverted() {
				continue
			}
			e.cache.Put(ch, e.sb.TakeSnapshot())
			current = candidate
		}

		if e.checkProperties(current) {
			newFailure = true
			if e.cfg.FailFast {
				break
			}
		}
	}

	return newFailure, nil
}

// ensureBaseline returns the genesis-with-budget snapshot cached under
// trace.EmptyHash. When it is not cached (first use, or evicted from a
// bounded cache) it is rebuilt by minting the configured budget into every
// account of a freshly constructed sandbox.
func (e *Engine) ensureBaseline() (snapshot.Snapshot, error) {
	if snap, ok := e.cache.Get(trace.EmptyHash); ok {
		return snap, nil
	}
	fresh := e.newSandbox()
	for _, acc := range e.cfg.Accounts {
		fresh.Mint(acc, e.cfg.Budget)
	}
	snap := fresh.TakeSnapshot()
	e.cache.Put(trace.EmptyHash, snap)
	return snap, nil
}

// checkProperties runs the dry-run property check against
// the sandbox state reached by t, leaving the sandbox in that same state
// afterward (every round restores its checkpoint). It returns true if any
// property produced a failure witness, which is recorded in place of any
// earlier witness for that property.
func (e *Engine) checkProperties(t trace.Trace) bool {
	any := false
	for _, prop := range e.catalog.Properties {
		rounds := e.cfg.FuzzPropertyMaxRounds
		if len(prop.ArgTypes) == 0 {
			rounds = 1
		}
		checkpoint := e.sb.TakeSnapshot()
		for round := 0; round < rounds; round++ {
			caller := e.pickAccount()
			input, err := e.gen.GenerateCall(prop.Selector, prop.ArgTypes, e.rng)
			if err != nil {
				e.sb.RestoreSnapshot(checkpoint)
				continue
			}
			outcome, err := e.sb.Call(t.Deploy.Address, 0, input, caller, e.cfg.GasLimit, sandbox.Enforced)
			e.sb.RestoreSnapshot(checkpoint)
			if err != nil {
				continue // a trap during a property probe is not itself a property violation
			}
			if !outcome.Reverted() && isCanonicalFalse(outcome.Data) {
				witness := t.WithMessages(append(append([]trace.Entry(nil), t.Messages...),
					trace.MessageEntry(trace.Message{Caller: caller, Callee: t.Deploy.Address, Input: input})))
				e.recordFailure(witness, shrink.Reason{Kind: shrink.KindProperty, Property: prop.Label})
				any = true
				break
			}
		}
	}
	return any
}

func isCanonicalFalse(data []byte) bool {
	return len(data) == len(canonicalFalse) && data[0] == canonicalFalse[0] && data[1] == canonicalFalse[1]
}

func (e *Engine) recordFailure(t trace.Trace, reason shrink.Reason) {
	key := reason.Key()
	e.camp.RecordFailure(key, shrink.FailedTrace{Trace: t, Reason: reason})
}

func (e *Engine) pickAccount() trace.AccountId {
	return e.cfg.Accounts[e.rng.Choice(len(e.cfg.Accounts))]
}

func (e *Engine) drawSalt() []byte {
	n := e.rng.Length()
	salt := make([]byte, n)
	for i := range salt {
		salt[i] = e.rng.U8()
	}
	return salt
}

// drawEndowment implements the payability rule: non-payable methods must
// receive 0; payable methods draw from a curated set biased toward edges of
// the configured budget.
func (e *Engine) drawEndowment(payable bool) trace.Balance {
	if !payable {
		return 0
	}
	budget := e.cfg.Budget
	choices := []trace.Balance{0, 1, budget / 2, budget, budget}
	if budget > 0 {
		choices[3] = budget - 1
	}
	return choices[e.rng.Choice(len(choices))]
}

func asTrapped(err error) (*sandbox.Trapped, bool) {
	t, ok := err.(*sandbox.Trapped)
	return t, ok
}

// shrinkFailures runs the shrinker over every retained failure witness
// using a fresh sandbox per replay so minimization never disturbs campaign
// state.
func (e *Engine) shrinkFailures() {
	snap := e.camp.Read()
	for key, ft := range snap.FailedTraces {
		minimized := e.shr.Shrink(ft, e.cfg.MaxOptimizationRounds, e.rng, e.replay)
		e.camp.RecordFailure(key, minimized)
	}
}

// replay re-executes t from scratch on a freshly constructed sandbox,
// reporting whether it still fails and, if so, how.
func (e *Engine) replay(t trace.Trace) (bool, shrink.Reason) {
	sb := e.newSandbox()
	for _, acc := range e.cfg.Accounts {
		sb.Mint(acc, e.cfg.Budget)
	}

	outcome, err := sb.Deploy(t.Deploy.Code, t.Deploy.Endowment, t.Deploy.Data, t.Deploy.Salt, t.Deploy.Caller, e.cfg.GasLimit)
	if trapped, ok := asTrapped(err); ok {
		return true, shrink.Reason{Kind: shrink.KindTrapped, Detail: trapped.Reason}
	}
	if err != nil || outcome.Result.Reverted() {
		return false, shrink.Reason{}
	}

	for i, entry := range t.Messages {
		if entry.IsDeploy {
			continue
		}
		m := entry.Message
		callOutcome, err := sb.Call(m.Callee, m.Endowment, m.Input, m.Caller, e.cfg.GasLimit, sandbox.Enforced)
		if trapped, ok := asTrapped(err); ok {
			return true, shrink.Reason{Kind: shrink.KindTrapped, Detail: trapped.Reason}
		}
		if err != nil || callOutcome.Reverted() {
			return false, shrink.Reason{}
		}
		isLast := i == len(t.Messages)-1
		if isLast && len(m.Input) >= 4 {
			if prop, ok := e.propertyBySelector(m.Input[:4]); ok && isCanonicalFalse(callOutcome.Data) {
				return true, shrink.Reason{Kind: shrink.KindProperty, Property: prop.Label}
			}
		}
	}
	return false, shrink.Reason{}
}

func (e *Engine) propertyBySelector(sel []byte) (catalog.Method, bool) {
	var s [4]byte
	copy(s[:], sel)
	for _, p := range e.catalog.Properties {
		if p.Selector == s {
			return p, true
		}
	}
	return catalog.Method{}, false
}
