package core

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/remote"
	"github.com/silene/opam/pkg/remote/localindex"
	"github.com/silene/opam/pkg/solver"
	"github.com/silene/opam/pkg/state"
	"go.uber.org/zap"
)

// Client is the in-memory snapshot of one loaded client root: the
// ordered remote list plus the root handle. Package data is never
// cached here; it is re-read from the root on demand.
type Client struct {
	remotes []model.URL
	root    *state.Root
	mirror  remote.Server
	in      *bufio.Reader

	settings Settings
}

// New loads the configuration from the root and returns a ready
// client. The config must exist: run Init first on a fresh root.
func New(ctx context.Context, root *state.Root, opts ...Option) (*Client, error) {
	c := newClient(root, opts...)
	cfg, err := root.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.remotes = cfg.Remotes
	return c, nil
}

// Init materializes a fresh root configured with the given remotes,
// then runs a first repository update so the index is usable right
// away.
func Init(ctx context.Context, root *state.Root, remotes []model.URL, opts ...Option) (*Client, error) {
	c := newClient(root, opts...)
	cfg := &model.Config{
		APIVersion:      model.CurrentAPIVersion,
		CompilerVersion: "system",
		Remotes:         remotes,
	}
	if err := root.Init(ctx, cfg); err != nil {
		return nil, err
	}
	c.remotes = remotes
	if err := c.Update(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(root *state.Root, opts ...Option) *Client {
	settings := defaultSettings()
	for _, apply := range opts {
		apply(&settings)
	}
	if settings.l == nil {
		settings.l = zap.NewNop()
	}
	if settings.solver == nil {
		settings.solver = solver.New()
	}
	c := &Client{
		root:     root,
		mirror:   localindex.New(root.Store(), localindex.Logger(settings.l)),
		in:       bufio.NewReader(settings.input),
		settings: settings,
	}
	if settings.dial == nil {
		c.settings.dial = func(u model.URL) remote.Server {
			backend := remote.Dial(u, root.Join(model.GetIndexPath()), settings.l)
			return remote.Instrument(settings.tracer, settings.l, backend)
		}
	}
	return c
}

// Root exposes the underlying root handle.
func (c *Client) Root() *state.Root { return c.root }

// Remotes returns the configured remotes, in order.
func (c *Client) Remotes() []model.URL { return c.remotes }

// Mirror is the in-process package server over this client's root.
func (c *Client) Mirror() remote.Server { return c.mirror }

func (c *Client) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.settings.output, format, args...)
}

// confirm prints a prompt and reads one answer line. Empty, "y" and
// "Y" accept; anything else declines. With AssumeYes the prompt is
// answered on the user's behalf.
func (c *Client) confirm(prompt string) bool {
	c.printf("%s ", prompt)
	if c.settings.assumeYes {
		c.printf("y\n")
		return true
	}
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		// closed input reads as a refusal, not an error
		c.printf("\n")
		return false
	}
	switch strings.TrimSpace(line) {
	case "", "y", "Y":
		return true
	}
	return false
}
