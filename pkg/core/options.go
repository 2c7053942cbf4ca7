package core

import (
	"io"
	"os"

	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/remote"
	"github.com/silene/opam/pkg/solver"
	opentracing "github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
)

// Option sets client settings.
type Option func(*Settings)

// Settings defines the knobs of a client.
type Settings struct {
	l         *zap.Logger
	input     io.Reader
	output    io.Writer
	assumeYes bool
	solver    solver.Solver
	tracer    opentracing.Tracer
	dial      DialFunc
	workDir   string
}

// DialFunc builds the backend for one configured remote. Tests swap
// it for fakes; the default dispatches on the remote kind and wraps
// the result with tracing instrumentation.
type DialFunc func(u model.URL) remote.Server

// Logger sets a diagnostics logger. User-facing output is unaffected:
// it goes through the Output writer.
func Logger(l *zap.Logger) Option {
	return func(s *Settings) {
		if l != nil {
			s.l = l
		}
	}
}

// Input sets the stream prompts read answers from. Defaults to stdin.
func Input(r io.Reader) Option {
	return func(s *Settings) {
		if r != nil {
			s.input = r
		}
	}
}

// Output sets the stream user-facing output is written to: package
// lists, prompts, new-package notifications. Defaults to stdout.
func Output(w io.Writer) Option {
	return func(s *Settings) {
		if w != nil {
			s.output = w
		}
	}
}

// AssumeYes makes every prompt auto-accept, for non-interactive runs.
// Prompts are still printed.
func AssumeYes(yes bool) Option {
	return func(s *Settings) {
		s.assumeYes = yes
	}
}

// WithSolver overrides the resolution engine.
func WithSolver(sv solver.Solver) Option {
	return func(s *Settings) {
		if sv != nil {
			s.solver = sv
		}
	}
}

// WithTracer sets the tracer remote calls are instrumented with.
func WithTracer(tr opentracing.Tracer) Option {
	return func(s *Settings) {
		if tr != nil {
			s.tracer = tr
		}
	}
}

// WithDialer overrides how configured remotes are turned into backend
// clients.
func WithDialer(dial DialFunc) Option {
	return func(s *Settings) {
		if dial != nil {
			s.dial = dial
		}
	}
}

// WorkDir sets the directory spec files and archives are looked up in
// at publication time. Defaults to the process working directory.
func WorkDir(dir string) Option {
	return func(s *Settings) {
		if dir != "" {
			s.workDir = dir
		}
	}
}

func defaultSettings() Settings {
	return Settings{
		l:      zap.NewNop(),
		input:  os.Stdin,
		output: os.Stdout,
		tracer: opentracing.NoopTracer{},
	}
}
