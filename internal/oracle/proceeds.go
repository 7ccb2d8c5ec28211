package oracle

import (
	"github.com/shopspring/decimal"

	"github.com/movy/movefuzz/internal/concolic"
	"github.com/movy/movefuzz/pkg/move"
)

// ProceedsOracle raises Critical if the transaction succeeded and the
// attacker's balance-change set is non-negative everywhere and positive
// somewhere after subtracting gas cost (spec.md §4.8).
type ProceedsOracle struct{}

func (ProceedsOracle) Name() string { return "ProceedsOracle" }

func (ProceedsOracle) PreExecution(LedgerView, *State, *move.MoveSequence) {}

func (ProceedsOracle) Event(concolic.InstrEvent, move.Ident, *concolic.State, *State) []Finding {
	return nil
}

func (ProceedsOracle) DoneExecution(ledger LedgerView, state *State, effects Effects) []Finding {
	if !effects.Success {
		return nil
	}
	deltas, ok := state.BalanceDelta[state.Sender]
	if !ok {
		return nil
	}

	anyPositive := false
	gas := decimal.NewFromInt(int64(state.GasUsed))
	for coinKey, delta := range deltas {
		adjusted := delta
		if coinKey == gasCoinKey {
			adjusted = adjusted.Sub(gas)
		}
		if adjusted.IsNegative() {
			return nil
		}
		if adjusted.IsPositive() {
			anyPositive = true
		}
	}
	if !anyPositive {
		return nil
	}
	return []Finding{{
		Oracle:   "ProceedsOracle",
		Severity: SeverityCritical,
		Message:  "attacker balance increased net of gas: no tracked coin type decreased and at least one increased",
	}}
}

// gasCoinKey is the BalanceDelta key under which the executor records
// 0x2::sui::SUI changes: the coin type's SignatureToken.String().
var gasCoinKey = move.StructOf(move.StructTag{Address: move.Address{31: 2}, Module: "sui", Name: "SUI"}).String()
