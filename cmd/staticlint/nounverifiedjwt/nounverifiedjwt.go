// Package nounverifiedjwt reports calls that read a JWT without
// checking its signature.
package nounverifiedjwt

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

const jwtPackagePrefix = "github.com/golang-jwt/jwt"

// Analyzer flags every ParseUnverified call on the golang-jwt packages.
var Analyzer = &analysis.Analyzer{
	Name: "nounverifiedjwt",
	Doc:  "prohibits parsing JWTs without signature verification",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok || sel.Sel.Name != "ParseUnverified" {
				return true
			}

			if isFromJWTPackage(pass.TypesInfo.Uses[sel.Sel]) {
				pass.Reportf(call.Pos(), "avoid ParseUnverified: token signatures must be verified")
			}

			return true
		})
	}
	return nil, nil
}

func isFromJWTPackage(object types.Object) bool {
	if object == nil || object.Pkg() == nil {
		return false
	}

	return strings.HasPrefix(object.Pkg().Path(), jwtPackagePrefix)
}
