// Package internalcheck holds static-analysis tests that enforce the
// module's boundary rules.
//
// # Internal Use Only
//
// This package contains no API. Its tests load the module's packages with
// golang.org/x/tools/go/packages and fail when:
//
//   - code outside gate.go reads the handle's engine or cookie fields
//   - a cookie-taking Engine method is called outside a Gate callback
//   - a package other than the native backend imports unsafe or purego
package internalcheck
