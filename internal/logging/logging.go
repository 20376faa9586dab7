// Package logging constructs the process-wide zap logger.
//
// The logger is built once in main and passed explicitly to every
// component; no package keeps an ambient logger of its own.
package logging

import "go.uber.org/zap"

// New returns a sugared logger. With debug=true it uses the development
// config (human-readable, DEBUG level); otherwise the production config
// (JSON, INFO level).
func New(debug bool) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything. Used by tests and as a
// default when a caller passes nil.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
