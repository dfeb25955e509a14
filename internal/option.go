package internal

import "github.com/kisernl/flashcard-app/internal/remote"

// Option adjusts the flashcard application before Run starts it.
type Option func(*application)

type application struct {
	config *Config
	remote remote.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRemote overrides the mirror client built from configuration. Tests
// inject fakes through it; nil leaves the client config-driven.
func WithRemote(rc remote.Client) Option {
	return func(a *application) {
		a.remote = rc
	}
}
