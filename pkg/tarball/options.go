package tarball

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option modifies fetch settings.
type Option func(*Settings)

// Settings for archive fetching.
type Settings struct {
	l      *zap.Logger
	client *http.Client
}

// Logger sets a diagnostics logger.
func Logger(l *zap.Logger) Option {
	return func(s *Settings) {
		if l != nil {
			s.l = l
		}
	}
}

// HTTPClient overrides the download client.
func HTTPClient(c *http.Client) Option {
	return func(s *Settings) {
		if c != nil {
			s.client = c
		}
	}
}

func defaultSettings() Settings {
	return Settings{
		l:      zap.NewNop(),
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}
