//go:build tools

// Package officepulse pins the code generators (mockgen) in go.mod.
package officepulse

import (
	_ "go.uber.org/mock/mockgen"
)
