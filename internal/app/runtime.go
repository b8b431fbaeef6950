package app

import (
	"os"
	"sync"
)

// The binaries consult TALLYLEDGER_TEST_MODE before opening database or
// redis connections, so packages with a main can be linked into tests
// without runtime side effects.
const testModeEnv = "TALLYLEDGER_TEST_MODE"

var inTestMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether startup side effects should be skipped.
// The environment is read once; later changes do not flip the flag.
func InTestMode() bool {
	return inTestMode()
}
