package executor

import (
	"github.com/movy/movefuzz/pkg/move"
)

// StatusKind discriminates an execution's effects.status (spec.md §6).
type StatusKind uint8

const (
	StatusSuccess StatusKind = iota
	StatusFailure
)

// Status is effects.status: Success, or Failure with the zero-based
// index of the failing command (absent for non-abort errors).
type Status struct {
	Kind    StatusKind
	Command *int
	Err     error
}

// GasStatus is the minimal gas-accounting surface the executor reports:
// charged amount and whether the budget was exhausted.
type GasStatus struct {
	Used    uint64
	Budget  uint64
	Overage bool
}

// BalanceChange is one address/coin-type delta observed by the executor's
// committed writes, feeding oracle.State.BalanceDelta.
type BalanceChange struct {
	Address  move.Address
	CoinType move.SignatureToken
	Delta    int64
}

// Effects is the VM-reported result of running one PTB (spec.md §6):
// `{effects, store, gas_status}` with effects.status ∈
// {Success, Failure{command?, error}}.
type Effects struct {
	Status         Status
	BalanceChanges []BalanceChange
	Gas            GasStatus
}

func (e Effects) succeeded() bool { return e.Status.Kind == StatusSuccess }
