// Package testdata holds sample repository indexes shared by tests.
package testdata

import _ "embed"

//go:embed repository.json
var RepositoryJSON []byte
