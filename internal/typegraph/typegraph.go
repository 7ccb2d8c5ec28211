// Package typegraph builds and queries the producer/consumer graph over
// Move function ABIs used by the synthesizer to answer "which call can
// supply a value of type T". Grounded on the teacher's incremental
// Add*-method table assembly (internal/vybium-starks-vm/vm/tables.go) and
// on original_source/crates/movy-analysis/src/type_graph.rs for exact
// edge-direction semantics.
package typegraph

import (
	"sort"

	"github.com/movy/movefuzz/pkg/move"
)

// EdgeKind discriminates the direction/mutability of a parameter edge, or
// marks a function-to-type return edge.
type EdgeKind uint8

const (
	EdgeValue EdgeKind = iota
	EdgeReference
	EdgeMutableReference
	EdgeFunctionReturn
)

// FunctionNode identifies a function node: its declaring module and ABI.
type FunctionNode struct {
	Module move.Address
	Name   string
	Abi    move.FunctionAbi
}

type edge struct {
	to   int
	kind EdgeKind
}

// nodeKind discriminates a graph node.
type nodeKind uint8

const (
	nodeFunction nodeKind = iota
	nodeType
)

type node struct {
	kind nodeKind
	fn   FunctionNode
	ty   move.SignatureToken
}

// Graph is the directed, cyclic type/function dependency graph of
// spec.md §3/§4.1. Exactly one type-node exists per distinct
// (dereferenced) SignatureToken; duplicates are coalesced.
type Graph struct {
	nodes []node
	// outgoing/incoming adjacency, indexed by node index.
	out map[int][]edge
	in  map[int][]edge

	// tyIndex maps a canonicalized type key to its node index.
	tyIndex map[string]int
	// modules tracks which modules have already been added, so
	// AddModule is idempotent.
	modules map[move.Address]map[string]bool
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		out:     map[int][]edge{},
		in:      map[int][]edge{},
		tyIndex: map[string]int{},
		modules: map[move.Address]map[string]bool{},
	}
}

func tyKey(t move.SignatureToken) string {
	return t.Dereference().String()
}

// mayAddType returns the node index for t's dereferenced type, creating a
// new type-node only if one doesn't already exist for that dereferenced
// signature (invariant: exactly one type-node per distinct SignatureToken
// after dereferencing; duplicates are coalesced).
func (g *Graph) mayAddType(t move.SignatureToken) int {
	deref := t.Dereference()
	key := tyKey(deref)
	if idx, ok := g.tyIndex[key]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, node{kind: nodeType, ty: deref})
	g.tyIndex[key] = idx
	return idx
}

// AddFunction inserts Function(module,name,abi) once and wires parameter
// edges (type-node -> function-node) and return edges
// (function-node -> type-node), per spec.md §4.1.
func (g *Graph) AddFunction(module move.Address, name string, abi move.FunctionAbi) {
	if g.modules[module] == nil {
		g.modules[module] = map[string]bool{}
	}
	if g.modules[module][name+"::"+abi.Name] {
		return
	}
	g.modules[module][name+"::"+abi.Name] = true

	fidx := len(g.nodes)
	g.nodes = append(g.nodes, node{kind: nodeFunction, fn: FunctionNode{Module: module, Name: name, Abi: abi}})

	for _, param := range abi.Params {
		var kind EdgeKind
		var ty move.SignatureToken
		switch param.Kind {
		case move.KindReference:
			kind = EdgeReference
			ty = param.Dereference()
		case move.KindMutableReference:
			kind = EdgeMutableReference
			ty = param.Dereference()
		default:
			kind = EdgeValue
			ty = param
		}
		tidx := g.mayAddType(ty)
		g.out[tidx] = append(g.out[tidx], edge{to: fidx, kind: kind})
		g.in[fidx] = append(g.in[fidx], edge{to: tidx, kind: kind})
	}

	for _, ret := range abi.Returns {
		tidx := g.mayAddType(ret.Dereference())
		g.out[fidx] = append(g.out[fidx], edge{to: tidx, kind: EdgeFunctionReturn})
		g.in[tidx] = append(g.in[tidx], edge{to: fidx, kind: EdgeFunctionReturn})
	}
}

// AddModule registers every function of a ModuleAbi.
func (g *Graph) AddModule(m move.ModuleAbi) {
	for _, fn := range m.Functions {
		g.AddFunction(m.Package, m.Name, fn)
	}
}

// AddPackage registers every module of a PackageAbi.
func (g *Graph) AddPackage(p move.PackageAbi) {
	for _, m := range p.Modules {
		g.AddModule(m)
	}
}

// FindConsumers returns every function whose parameter type-node partially
// unifies with ty, i.e. "which calls can consume a value of type ty".
func (g *Graph) FindConsumers(ty move.SignatureToken, publicOnly bool) []FunctionNode {
	return g.search(ty, publicOnly, true)
}

// FindProducers returns every function whose return type-node partially
// unifies with ty, i.e. "which calls can supply a value of type ty".
func (g *Graph) FindProducers(ty move.SignatureToken, publicOnly bool) []FunctionNode {
	return g.search(ty, publicOnly, false)
}

func (g *Graph) search(ty move.SignatureToken, publicOnly bool, outgoing bool) []FunctionNode {
	var results []FunctionNode
	for idx, n := range g.nodes {
		if n.kind != nodeType {
			continue
		}
		if _, ok := n.ty.PartialExtractTyArgs(ty); !ok {
			continue
		}
		var edges []edge
		if outgoing {
			edges = g.out[idx]
		} else {
			edges = g.in[idx]
		}
		for _, e := range edges {
			if outgoing && e.kind == EdgeFunctionReturn {
				continue
			}
			if !outgoing && e.kind != EdgeFunctionReturn {
				continue
			}
			target := g.nodes[e.to]
			if target.kind != nodeFunction {
				continue
			}
			if publicOnly && target.fn.Abi.Visibility != move.VisibilityPublic {
				continue
			}
			results = append(results, target.fn)
		}
	}
	// Deterministic ordering for reproducible mutation decisions
	// (testable property 7/8).
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Module != b.Module {
			return a.Module.String() < b.Module.String()
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Abi.Name < b.Abi.Name
	})
	return results
}

// NumNodes reports the total node count (functions + types), for tests.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// AllFunctions returns every function node registered so far, in
// insertion order, for building a mutator.FunctionCatalog over the
// graph's full callable surface.
func (g *Graph) AllFunctions() []FunctionNode {
	var out []FunctionNode
	for _, n := range g.nodes {
		if n.kind == nodeFunction {
			out = append(out, n.fn)
		}
	}
	return out
}
