// Package ast defines the typed-front-end syntax tree: expressions,
// statements, declarations, and syntactic type references. The parser
// builds the nodes (including each node's owning scope.Context) once. The
// one field changed afterwards is Decl.Type: pkg/infer fills in or assigns
// it for type, implementation and method declarations.
// Per-expression inference results live in pkg/infer's ExprId -> side table,
// not on the node itself.
package ast

import "github.com/typec-lang/tcc/pkg/source"

// ExprID stably identifies one Expr node for the lifetime of a compilation,
// independent of the node's address. pkg/infer keys its inference side
// table on this rather than mutating Expr in place.
type ExprID uint64

// IDGen hands out increasing ExprIDs. One IDGen is owned per compiler
// instance (not a package global), so repeated compilations in the same
// process stay independent (spec §9 "process-wide counters").
type IDGen struct{ next uint64 }

func NewIDGen() *IDGen { return &IDGen{} }

func (g *IDGen) Next() ExprID {
	g.next++
	return ExprID(g.next)
}

// Span returns the source span every node in this package carries.
type Span = source.Span
