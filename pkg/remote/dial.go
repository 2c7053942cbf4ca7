package remote

import (
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/remote/gitrepo"
	"github.com/silene/opam/pkg/remote/httpapi"
	"github.com/silene/opam/pkg/remote/localindex"
	"go.uber.org/zap"
)

var (
	_ Server    = &httpapi.Client{}
	_ GitServer = &gitrepo.Repo{}
	_ Server    = &localindex.Server{}
)

// Dial builds the backend matching the remote's kind. Git remotes
// check out into indexDir; callers that need the git-specific calls
// assert the result against GitServer.
func Dial(u model.URL, indexDir string, l *zap.Logger) Server {
	if u.Kind == model.RemoteGit {
		return gitrepo.New(u, indexDir, gitrepo.Logger(l))
	}
	return httpapi.New(u)
}
