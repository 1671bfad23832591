// Package logging configures the leveled module loggers used across netgof.
package logging

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

var formatter = logging.MustStringFormatter(`%{time:15:04:05.000} %{module} %{level:.4s} %{message}`)

// Setup sends all module loggers to stderr. Verbose enables DEBUG output,
// otherwise INFO and above are shown.
func Setup(verbose bool) {
	SetupWriter(os.Stderr, verbose)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, verbose bool) {
	logging.SetFormatter(formatter)
	logging.SetBackend(logging.NewLogBackend(w, "", 0))
	if verbose {
		logging.SetLevel(logging.DEBUG, "")
	} else {
		logging.SetLevel(logging.INFO, "")
	}
}

// Get returns the logger for a module.
func Get(module string) *logging.Logger {
	return logging.MustGetLogger(module)
}
