package ast

import (
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
)

// Package is the compilation unit for one source file (spec §3.1
// "Package"). The import resolver (pkg/pkggraph) owns the path->Package
// map; a Package itself only knows its own content.
type Package struct {
	FilePath string
	Root     *scope.Context

	Imports    []ImportDirective
	Decls      []*Decl
	Statements []*Stmt // top-level executable statements, outside any function

	// StaticInits collects every class's static-initializer block in
	// declaration order (spec §3.1 "static-class initializer blocks" treated
	// specially). The entry preamble built by pkg/ir does not lower them.
	StaticInits []*Block

	Sink *source.Sink

	// Globals back-points to the process-wide registry this package's
	// root context registers into (spec §3.1 "back-pointer to a
	// process-wide registry of compiled globals").
	Globals *scope.GlobalRegistry

	IDGen *IDGen
}

func NewPackage(filePath string, root *scope.Context, globals *scope.GlobalRegistry, sink *source.Sink) *Package {
	return &Package{
		FilePath: filePath,
		Root:     root,
		Globals:  globals,
		Sink:     sink,
		IDGen:    NewIDGen(),
	}
}

// AddDecl appends a top-level declaration, additionally recording its
// static-initializer block if it is a class that declared one.
func (p *Package) AddDecl(d *Decl) {
	p.Decls = append(p.Decls, d)
	if d.Kind == DeclClass && d.StaticInit != nil {
		p.StaticInits = append(p.StaticInits, d.StaticInit)
	}
}

// FindDecl looks up a top-level declaration by name, the way the import
// resolver needs to when it validates a named or sub-import's final hop.
func (p *Package) FindDecl(name string) *Decl {
	for _, d := range p.Decls {
		if d.Name == name {
			return d
		}
	}
	return nil
}
