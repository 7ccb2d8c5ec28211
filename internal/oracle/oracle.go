// Package oracle implements the ordered oracle pipeline (spec.md §4.8):
// pre_execution / event / done_execution hooks that watch a PTB
// execution and raise findings, a Critical one elevating the run's
// verdict to Crash. Grounded on the teacher's pass/fail-judgement shape
// in internal/vybium-starks-vm/protocols/verifier.go (a pipeline of
// checks run in declared order against one execution trace) and on
// medusa's on-domain "invariant/property oracle" concept (manifest-only
// in the retrieved pack; its dependency list, not its source, informed
// the shape here).
package oracle

import (
	"github.com/shopspring/decimal"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/pkg/move"
)

// Severity classifies a Finding. Critical elevates the run's verdict.
type Severity uint8

const (
	SeverityMinor Severity = iota
	SeverityCritical
)

// Finding is one oracle-raised observation.
type Finding struct {
	Oracle   string
	Severity Severity
	Message  string
}

// LedgerView is the read-only ledger surface oracles may consult
// (spec.md §6). A minimal slice of the full LedgerView contract — just
// enough for balance-delta computation.
type LedgerView interface {
	BalanceOf(addr move.Address, coinType move.SignatureToken) (int64, error)
}

// State is the subset of execution-wide bookkeeping an oracle needs at
// done_execution time: the sender, gas charged, and the effects'
// balance-change set.
type State struct {
	Sender  move.Address
	GasUsed uint64
	// BalanceDelta is address -> coin type key -> delta, kept as
	// decimal.Decimal (rather than a raw integer) so the "net of gas"
	// comparison in ProceedsOracle stays exact and unit-agnostic across
	// coin types with different decimal places.
	BalanceDelta map[move.Address]map[string]decimal.Decimal
}

// Effects is the minimal PTB execution result surface oracles consult.
type Effects struct {
	Success bool
}

// Oracle implements the three spec.md §4.8 hooks. Any hook may be a
// no-op; PreExecution/Event are called unconditionally, DoneExecution
// only once per PTB.
type Oracle interface {
	Name() string
	PreExecution(ledger LedgerView, state *State, seq *move.MoveSequence)
	Event(ev concolic.InstrEvent, currentFunc move.Ident, con *concolic.State, state *State) []Finding
	DoneExecution(ledger LedgerView, state *State, effects Effects) []Finding
}

// Pipeline runs a fixed, ordered list of oracles. Ordering matters per
// spec.md §4.8: "each oracle sees every event in the order it appears in
// the pipeline".
type Pipeline struct {
	oracles []Oracle
}

// NewPipeline builds a Pipeline over oracles, in the given order.
func NewPipeline(oracles ...Oracle) *Pipeline {
	return &Pipeline{oracles: oracles}
}

func (p *Pipeline) PreExecution(ledger LedgerView, state *State, seq *move.MoveSequence) {
	for _, o := range p.oracles {
		o.PreExecution(ledger, state, seq)
	}
}

func (p *Pipeline) Event(ev concolic.InstrEvent, currentFunc move.Ident, con *concolic.State, state *State) []Finding {
	var all []Finding
	for _, o := range p.oracles {
		all = append(all, o.Event(ev, currentFunc, con, state)...)
	}
	return all
}

// DoneExecution runs every oracle's done_execution hook and reports
// whether any Critical finding was raised, per spec.md §4.8 "A Critical
// finding from any oracle elevates verdict to Crash."
func (p *Pipeline) DoneExecution(ledger LedgerView, state *State, effects Effects) ([]Finding, bool) {
	var all []Finding
	crash := false
	for _, o := range p.oracles {
		findings := o.DoneExecution(ledger, state, effects)
		all = append(all, findings...)
		for _, f := range findings {
			if f.Severity == SeverityCritical {
				crash = true
			}
		}
	}
	return all, crash
}
