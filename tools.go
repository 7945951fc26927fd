//go:build tools

// Package tools pins the code generators used by go:generate (mockgen for
// the mocks/ package) so that go.mod tracks them and a fresh checkout can
// regenerate the mocks without a separate install step.
package wa_relay

import (
	_ "go.uber.org/mock/mockgen"
)
