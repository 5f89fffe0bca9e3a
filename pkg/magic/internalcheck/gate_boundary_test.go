package internalcheck

import (
	"fmt"
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const magicPkg = "github.com/hsiuhsiu/magic-go/pkg/magic"

// gateFile is the only file allowed to touch the cookie directly.
const gateFile = "gate.go"

func loadMagic(t *testing.T) []*packages.Package {
	t.Helper()
	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedFiles | packages.NeedName,
	}
	pkgs, err := packages.Load(cfg, magicPkg)
	if err != nil {
		t.Fatalf("load package: %v", err)
	}
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			t.Fatalf("load %s: %v", pkg.PkgPath, e)
		}
	}
	return pkgs
}

func TestOnlyGateReadsCookie(t *testing.T) {
	var findings []string
	for _, pkg := range loadMagic(t) {
		for _, file := range pkg.Syntax {
			name := filepath.Base(pkg.Fset.Position(file.Pos()).Filename)
			if name == gateFile {
				continue
			}
			ast.Inspect(file, func(n ast.Node) bool {
				sel, ok := n.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				s := pkg.TypesInfo.Selections[sel]
				if s == nil || s.Kind() != types.FieldVal || !isMagic(s.Recv()) {
					return true
				}
				if field := s.Obj().Name(); field == "engine" || field == "cookie" {
					findings = append(findings, fmt.Sprintf("%s: Magic.%s accessed outside %s", pkg.Fset.Position(sel.Pos()), field, gateFile))
				}
				return true
			})
		}
	}
	if len(findings) > 0 {
		t.Fatalf("gate boundary violation:\n%s", strings.Join(findings, "\n"))
	}
}

// TestEngineCallsInsideGate requires every call to an Engine method that
// takes a Cookie to sit inside a function literal (a withLock callback) or
// a helper that receives the Cookie as a parameter. The libmagic adapter in
// engine.go forwards calls and is exempt.
func TestEngineCallsInsideGate(t *testing.T) {
	var findings []string
	for _, pkg := range loadMagic(t) {
		for _, file := range pkg.Syntax {
			name := filepath.Base(pkg.Fset.Position(file.Pos()).Filename)
			if name == "engine.go" {
				continue
			}
			var stack []ast.Node
			ast.Inspect(file, func(n ast.Node) bool {
				if n == nil {
					stack = stack[:len(stack)-1]
					return true
				}
				stack = append(stack, n)

				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				sel, ok := call.Fun.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				s := pkg.TypesInfo.Selections[sel]
				if s == nil || s.Kind() != types.MethodVal || !isEngine(s.Recv()) || !takesCookie(s.Obj()) {
					return true
				}
				if !insideGate(stack, pkg.TypesInfo) {
					findings = append(findings, fmt.Sprintf("%s: Engine.%s called outside a Gate callback", pkg.Fset.Position(call.Pos()), sel.Sel.Name))
				}
				return true
			})
		}
	}
	if len(findings) > 0 {
		t.Fatalf("gate boundary violation:\n%s", strings.Join(findings, "\n"))
	}
}

func insideGate(stack []ast.Node, info *types.Info) bool {
	for i := len(stack) - 1; i >= 0; i-- {
		switch fn := stack[i].(type) {
		case *ast.FuncLit:
			return true
		case *ast.FuncDecl:
			for _, field := range fn.Type.Params.List {
				if isNamed(info.TypeOf(field.Type), "Cookie") {
					return true
				}
			}
			return false
		}
	}
	return false
}

func isMagic(t types.Type) bool  { return isNamed(t, "Magic") }
func isEngine(t types.Type) bool { return isNamed(t, "Engine") }

func isNamed(t types.Type, name string) bool {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	n, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := n.Obj()
	return obj.Name() == name && obj.Pkg() != nil && obj.Pkg().Path() == magicPkg
}

func takesCookie(obj types.Object) bool {
	sig, ok := obj.Type().(*types.Signature)
	if !ok || sig.Params().Len() == 0 {
		return false
	}
	return isNamed(sig.Params().At(0).Type(), "Cookie")
}
