package infer

import (
	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/types"
)

// binaryOperatorNames and unaryOperatorNames map an operator expression's syntactic shape to the
// class-method name convention Type-C uses for operator overloading (spec
// §4.4 "Operator resolution"): a class opts into `a + b` by defining
// `__add__`, into `a[i]` by defining `__index__`, into `a(x)` by defining
// `__call__`, and so on.
var binaryOperatorNames = map[string]string{
	"+": "__add__", "-": "__sub__", "*": "__mul__", "/": "__div__", "%": "__mod__",
	"==": "__eq__", "!=": "__neq__",
	"<": "__lt__", "<=": "__le__", ">": "__gt__", ">=": "__ge__",
	"&&": "__and__", "||": "__or__",
}

var unaryOperatorNames = map[string]string{
	"-": "__neg__", "!": "__not__",
}

// resolveOperatorOverload checks whether receiver is a class defining the
// operator method for kind/op, returning the match for the caller to record
// and use in place of the primitive operation. It returns nil (not an
// error) when receiver is not a class or defines no such method, so the
// caller falls through to primitive-operator inference.
func (e *Engine) resolveOperatorOverload(ctx *scope.Context, expr *ast.Expr, kind string, receiver *types.Type, extraOperands []*types.Type, instance string) *OverloadMatch {
	if receiver == nil {
		return nil
	}
	r := receiver.Reduce()
	if r.Kind != types.KindClass {
		return nil
	}

	var name string
	switch kind {
	case "binary":
		n, ok := binaryOperatorNames[expr.Op]
		if !ok {
			return nil
		}
		name = n
	case "unary":
		n, ok := unaryOperatorNames[expr.Op]
		if !ok {
			return nil
		}
		name = n
	case "index":
		name = "__index__"
	case "index-set":
		name = "__index_set__"
	case "call":
		name = "__call__"
	default:
		return nil
	}

	cm := findMethodByName(r, name, false)
	if cm == nil {
		return nil
	}
	if d, ok := cm.Decl.(*ast.Decl); ok {
		e.inferMethodHeader(d, cm.Context, "", nil, r)
	}
	return &OverloadMatch{MethodName: name, Method: cm, ClassType: r}
}
