package server

import (
	"io"
	"log"
	"os"
)

// Package-level loggers. Tests swap these for io.Discard writers.
var (
	errorLog = log.New(os.Stderr, "ERROR: ", log.LstdFlags)
	debugLog = log.New(io.Discard, "DEBUG: ", log.LstdFlags|log.Lmicroseconds)
)

// EnableDebugLogging turns on verbose per-command logging.
func (s *Server) EnableDebugLogging() {
	debugLog = log.New(os.Stderr, "DEBUG: ", log.LstdFlags|log.Lmicroseconds)
}
