// Copyright © 2018 One Concern

package remote

import (
	"context"
	"strings"

	"github.com/silene/opam/pkg/model"
	opentracing "github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
)

// Instrument wraps a server with tracing spans and debug logging on
// every call. Git-backed servers keep their git-specific calls.
func Instrument(tr opentracing.Tracer, l *zap.Logger, server Server) Server {
	if tr == nil {
		tr = opentracing.NoopTracer{}
	}
	if l == nil {
		l = zap.NewNop()
	}
	wrapped := &instrumentedServer{
		tr:     tr,
		server: server,
		l:      l.With(zap.String("remote", server.String())),
	}
	if git, ok := server.(GitServer); ok {
		return &instrumentedGitServer{instrumentedServer: wrapped, git: git}
	}
	return wrapped
}

type instrumentedServer struct {
	server Server
	tr     opentracing.Tracer
	l      *zap.Logger
}

func (i *instrumentedServer) opName(name string) string {
	return strings.Join([]string{"remote", i.String(), name}, ".")
}

func (i *instrumentedServer) spanFromContext(ctx context.Context, name string) opentracing.Span {
	if parent := opentracing.SpanFromContext(ctx); parent != nil {
		return i.tr.StartSpan(name, opentracing.ChildOf(parent.Context()))
	}
	return i.tr.StartSpan(name)
}

func (i *instrumentedServer) List(ctx context.Context) (model.NVs, error) {
	span := i.spanFromContext(ctx, i.opName("List"))
	defer span.Finish()
	i.l.Debug("remote list")

	return i.server.List(ctx)
}

func (i *instrumentedServer) GetSpec(ctx context.Context, nv model.NV) ([]byte, error) {
	span := i.spanFromContext(ctx, i.opName("GetSpec"))
	defer span.Finish()
	i.l.Debug("remote get spec", zap.Stringer("package", nv))

	return i.server.GetSpec(ctx, nv)
}

func (i *instrumentedServer) GetArchive(ctx context.Context, nv model.NV) ([]byte, error) {
	span := i.spanFromContext(ctx, i.opName("GetArchive"))
	defer span.Finish()
	i.l.Debug("remote get archive", zap.Stringer("package", nv))

	return i.server.GetArchive(ctx, nv)
}

func (i *instrumentedServer) NewArchive(ctx context.Context, nv model.NV, spec, archive []byte) (string, error) {
	span := i.spanFromContext(ctx, i.opName("NewArchive"))
	defer span.Finish()
	i.l.Debug("remote new archive", zap.Stringer("package", nv))

	return i.server.NewArchive(ctx, nv, spec, archive)
}

func (i *instrumentedServer) UpdateArchive(ctx context.Context, nv model.NV, spec, archive []byte, key string) error {
	span := i.spanFromContext(ctx, i.opName("UpdateArchive"))
	defer span.Finish()
	i.l.Debug("remote update archive", zap.Stringer("package", nv))

	return i.server.UpdateArchive(ctx, nv, spec, archive, key)
}

func (i *instrumentedServer) String() string {
	return i.server.String()
}

type instrumentedGitServer struct {
	*instrumentedServer
	git GitServer
}

func (i *instrumentedGitServer) Cloned(ctx context.Context) (bool, error) {
	span := i.spanFromContext(ctx, i.opName("Cloned"))
	defer span.Finish()

	return i.git.Cloned(ctx)
}

func (i *instrumentedGitServer) Clone(ctx context.Context) error {
	span := i.spanFromContext(ctx, i.opName("Clone"))
	defer span.Finish()
	i.l.Debug("remote clone")

	return i.git.Clone(ctx)
}

func (i *instrumentedGitServer) Updates(ctx context.Context) ([]string, error) {
	span := i.spanFromContext(ctx, i.opName("Updates"))
	defer span.Finish()
	i.l.Debug("remote updates")

	return i.git.Updates(ctx)
}

func (i *instrumentedGitServer) Pull(ctx context.Context) error {
	span := i.spanFromContext(ctx, i.opName("Pull"))
	defer span.Finish()
	i.l.Debug("remote pull")

	return i.git.Pull(ctx)
}
