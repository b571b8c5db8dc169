package repl

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// Fail faster in tests that exercise the recreation path.
	maxRecreateAttempts = 3
	goleak.VerifyTestMain(m)
}
