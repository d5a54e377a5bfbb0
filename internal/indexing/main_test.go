package indexing

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package if a scan or a watcher leaves goroutines behind
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}
