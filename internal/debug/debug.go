// Package debug holds the logger shared by the library's packages.
package debug

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Log is the default logger. Protocol traffic is logged at the debug
// level, which is enabled by setting $WAYLAND_DEBUG to a positive
// integer.
var Log = logrus.New()

func init() {
	Log.SetLevel(logrus.InfoLevel)

	debugLevel, err := strconv.ParseInt(os.Getenv("WAYLAND_DEBUG"), 10, 0)
	if err != nil {
		return
	}
	if debugLevel > 0 {
		Log.SetLevel(logrus.DebugLevel)
	}
}
