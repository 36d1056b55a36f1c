package testutil

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Test binaries log at trace level, overridable with LOG_LEVEL. Output is only
// kept when running with -v.
func init() {
	level := logrus.TraceLevel
	if parsed, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		level = parsed
	}
	logrus.SetLevel(level)

	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.v") && arg != "-test.v=false" {
			return
		}
	}
	logrus.SetOutput(io.Discard)
}
