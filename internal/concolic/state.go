package concolic

import (
	"fmt"

	"github.com/movy/movefuzz/pkg/move"
)

// Sym is a single shadow-stack/locals slot: either a known symbolic
// integer expression, or Unknown.
type Sym struct {
	Known bool
	Expr  *SymExpr
}

func Unknown() Sym             { return Sym{} }
func Known(e *SymExpr) Sym      { return Sym{Known: true, Expr: e} }
func KnownConst(v uint64) Sym   { return Known(ConstU64(v)) }

// State is the symbolic shadow of the VM operand stack and locals for one
// PTB execution, per spec.md §3/§4.2 (component C2).
type State struct {
	Stack  []Sym
	Locals [][]Sym

	// Args holds, per top-level call index, the symbol bound to each
	// integer parameter at entry. A parameter's IntSym never changes value
	// during a call; only new calls create new symbols.
	Args []map[uint16]Sym

	// Disable marks the state as desynchronized: per spec.md §7, a
	// tracer-desync error disables the concolic state for the remainder
	// of the PTB and drops its path constraints.
	Disable bool

	callIdx int

	// funcStack is the call-stack of function identifiers; Logs are
	// attributed to its top, per spec.md §9's adopted "current
	// top-of-stack" resolution of the first-vs-last ambiguity.
	funcStack []move.Ident

	// Logs accumulated this PTB, keyed by the FuncIdent active when the
	// log entry was captured.
	Logs map[move.Ident][]Log
}

// New creates an empty concolic state.
func New() *State {
	return &State{Logs: map[move.Ident][]Log{}}
}

func (s *State) currentFunc() move.Ident {
	if len(s.funcStack) == 0 {
		return move.Ident{}
	}
	return s.funcStack[len(s.funcStack)-1]
}

func (s *State) push(v Sym)  { s.Stack = append(s.Stack, v) }
func (s *State) pop() (Sym, bool) {
	n := len(s.Stack)
	if n == 0 {
		return Sym{}, false
	}
	v := s.Stack[n-1]
	s.Stack = s.Stack[:n-1]
	return v, true
}

func (s *State) currentLocals() []Sym {
	if len(s.Locals) == 0 {
		return nil
	}
	return s.Locals[len(s.Locals)-1]
}

func (s *State) setLocal(idx int, v Sym) {
	if len(s.Locals) == 0 {
		return
	}
	top := s.Locals[len(s.Locals)-1]
	for idx >= len(top) {
		top = append(top, Unknown())
	}
	top[idx] = v
	s.Locals[len(s.Locals)-1] = top
}

func (s *State) getLocal(idx int) Sym {
	top := s.currentLocals()
	if idx < 0 || idx >= len(top) {
		return Unknown()
	}
	return top[idx]
}

// OpenFrame implements spec.md §4.2's OpenFrame row.
func (s *State) OpenFrame(ev OpenFrameEvent) {
	if s.Disable {
		return
	}
	s.funcStack = append(s.funcStack, ev.Func)

	if len(s.Locals) == 0 {
		// Initial call: mint fresh per-parameter symbols.
		m := make(map[uint16]Sym, ev.ParamCount)
		for i := 0; i < ev.ParamCount; i++ {
			isInt := i < len(ev.IsIntParam) && ev.IsIntParam[i]
			if isInt {
				name := fmt.Sprintf("call_%d.param_%d", s.callIdx, i)
				m[uint16(i)] = Known(Var(name))
			} else {
				m[uint16(i)] = Unknown()
			}
		}
		s.Args = append(s.Args, m)
		// Seed a root locals frame so subsequent StLoc/CopyLoc inside the
		// initial call have somewhere to land.
		locals := make([]Sym, ev.ParamCount)
		for i := 0; i < ev.ParamCount; i++ {
			if v, ok := m[uint16(i)]; ok {
				locals[i] = v
			}
		}
		s.Locals = append(s.Locals, locals)
		return
	}

	if ev.IsNative {
		for i := 0; i < ev.ReturnCount; i++ {
			s.push(Unknown())
		}
		return
	}

	locals := make([]Sym, ev.ParamCount)
	for i := ev.ParamCount - 1; i >= 0; i-- {
		v, ok := s.pop()
		if !ok {
			v = Unknown()
		}
		locals[i] = v
	}
	s.Locals = append(s.Locals, locals)
}

// CloseFrame implements spec.md §4.2's CloseFrame row.
func (s *State) CloseFrame(ev CloseFrameEvent) {
	if s.Disable {
		return
	}
	if len(s.Locals) > 0 {
		s.Locals = s.Locals[:len(s.Locals)-1]
	}
	if len(s.funcStack) > 0 {
		s.funcStack = s.funcStack[:len(s.funcStack)-1]
	}
}

// Effect implements spec.md §4.2's Effect(ExecutionError) row: pop one
// shadow-stack entry to resynchronize.
func (s *State) Effect(ev EffectEvent) {
	if s.Disable || !ev.IsError {
		return
	}
	s.pop()
}

// External implements spec.md §4.2's External("MoveCallStart") row.
func (s *State) External(ev ExternalEvent) {
	if ev.Name == "MoveCallStart" {
		s.Stack = nil
		s.Locals = nil
		s.funcStack = nil
		s.callIdx++
	}
}

// recordLog attaches a captured comparison/cast/shift log entry to the
// function currently on top of the call stack.
func (s *State) recordLog(l Log) {
	f := s.currentFunc()
	s.Logs[f] = append(s.Logs[f], l)
}

// StackLen exposes the shadow stack depth for the tracer_desync invariant
// check (testable property 4).
func (s *State) StackLen() int { return len(s.Stack) }

// AssertStackLen checks the concolic-stack-balance invariant (spec.md §8,
// property 4) and disables the state on mismatch (spec.md §7).
func (s *State) AssertStackLen(vmStackLen int) {
	if s.Disable {
		return
	}
	if len(s.Stack) != vmStackLen {
		s.Disable = true
	}
}
