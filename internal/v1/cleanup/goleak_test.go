package cleanup_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies the sweep goroutine launched by Cleaner.Start always
// exits once Stop returns, the same guarantee the teacher's room package
// checks for its Redis subscription goroutine (internal/v1/room/goleak_test.go).
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
