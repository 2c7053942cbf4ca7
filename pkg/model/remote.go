package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RemoteKind discriminates the two supported remote flavors.
type RemoteKind string

const (
	// RemoteOpam is a package server speaking the opam HTTP protocol
	RemoteOpam RemoteKind = "opam"
	// RemoteGit is a git repository holding package sources
	RemoteGit RemoteKind = "git"
)

// URL locates a remote. Raw keeps the address as the user gave it;
// Hostname and Port are the split network endpoint for server remotes.
type URL struct {
	Raw      string     `json:"raw" yaml:"raw"`
	Hostname string     `json:"hostname" yaml:"hostname"`
	Port     int        `json:"port,omitempty" yaml:"port,omitempty"`
	Kind     RemoteKind `json:"kind" yaml:"kind"`
}

// DefaultServerPort is assumed when a server address omits one.
const DefaultServerPort = 9999

// ParseURL classifies and splits a remote address. Addresses that look
// like git checkouts (git:// or ssh schemes, a "user@host:path" form,
// or a path ending in .git) become git remotes; anything else is an
// opam server endpoint "host[:port]".
func ParseURL(raw string) (URL, error) {
	if raw == "" {
		return URL{}, fmt.Errorf("empty remote address")
	}
	if isGitAddress(raw) {
		return ParseGitURL(raw)
	}

	host, port := raw, DefaultServerPort
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		p, err := strconv.Atoi(raw[i+1:])
		if err != nil {
			return URL{}, fmt.Errorf("malformed port in remote address %q", raw)
		}
		host, port = raw[:i], p
	}
	if host == "" {
		return URL{}, fmt.Errorf("missing host in remote address %q", raw)
	}
	return URL{Raw: raw, Hostname: host, Port: port, Kind: RemoteOpam}, nil
}

// ParseGitURL treats raw as a git remote whatever its shape, for
// callers that know the kind up front.
func ParseGitURL(raw string) (URL, error) {
	if raw == "" {
		return URL{}, fmt.Errorf("empty remote address")
	}
	return URL{Raw: raw, Hostname: gitHostname(raw), Kind: RemoteGit}, nil
}

// gitHostname pulls the host part out of a git address, so removal by
// hostname works on git remotes too. Addresses with no recognizable
// host keep the raw form.
func gitHostname(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Hostname()
	}
	// scp-like syntax: user@host:path
	if at := strings.Index(raw, "@"); at > 0 {
		rest := raw[at+1:]
		if colon := strings.Index(rest, ":"); colon > 0 {
			return rest[:colon]
		}
		return rest
	}
	return raw
}

func isGitAddress(raw string) bool {
	if strings.HasSuffix(raw, ".git") {
		return true
	}
	if u, err := url.Parse(raw); err == nil {
		switch u.Scheme {
		case "git", "ssh", "git+ssh":
			return true
		}
	}
	// scp-like syntax: user@host:path
	if at := strings.Index(raw, "@"); at > 0 {
		rest := raw[at+1:]
		if colon := strings.Index(rest, ":"); colon > 0 {
			if _, err := strconv.Atoi(rest[colon+1:]); err != nil {
				return true
			}
		}
	}
	return false
}

// Addr renders the network endpoint of a server remote.
func (u URL) Addr() string {
	if u.Kind == RemoteGit {
		return u.Raw
	}
	return fmt.Sprintf("%s:%d", u.Hostname, u.Port)
}

func (u URL) String() string {
	return u.Raw
}
