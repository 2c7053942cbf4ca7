// Copyright © 2018 One Concern

// Package httpapi speaks the opam wire protocol against an index
// server.
package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/remote/status"
	"gopkg.in/yaml.v2"
)

// KeyHeader carries the republication key on update calls.
const KeyHeader = "X-Opam-Key"

// Option modifies client settings.
type Option func(*Client)

// HTTPClient overrides the underlying http client.
func HTTPClient(c *http.Client) Option {
	return func(s *Client) {
		if c != nil {
			s.client = c
		}
	}
}

// BaseURL overrides the derived http endpoint, for tests against
// ephemeral listeners.
func BaseURL(base string) Option {
	return func(s *Client) {
		s.base = base
	}
}

// Client implements the remote contract over HTTP.
type Client struct {
	url    model.URL
	base   string
	client *http.Client
}

// New builds a client for an opam-scheme remote.
func New(u model.URL, opts ...Option) *Client {
	c := &Client{
		url:    u,
		base:   fmt.Sprintf("http://%s", u.Addr()),
		client: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, apply := range opts {
		apply(c)
	}
	return c
}

func (c *Client) String() string {
	return c.url.Raw
}

func (c *Client) List(ctx context.Context) (model.NVs, error) {
	body, _, err := c.get(ctx, c.base+"/packages")
	if err != nil {
		return nil, err
	}
	var names []string
	if err := yaml.Unmarshal(body, &names); err != nil {
		return nil, err
	}
	var nvs model.NVs
	for _, s := range names {
		nv, err := model.ParseNV(s)
		if err != nil {
			return nil, err
		}
		nvs = append(nvs, nv)
	}
	return nvs, nil
}

func (c *Client) GetSpec(ctx context.Context, nv model.NV) ([]byte, error) {
	body, code, err := c.get(ctx, fmt.Sprintf("%s/packages/%s/spec", c.base, nv))
	if code == http.StatusNotFound {
		return nil, status.ErrNotFound
	}
	return body, err
}

func (c *Client) GetArchive(ctx context.Context, nv model.NV) ([]byte, error) {
	body, code, err := c.get(ctx, fmt.Sprintf("%s/packages/%s/archive", c.base, nv))
	if code == http.StatusNotFound {
		return nil, status.ErrNoArchive
	}
	return body, err
}

func (c *Client) NewArchive(ctx context.Context, nv model.NV, spec, archive []byte) (string, error) {
	req, err := c.uploadRequest(ctx, http.MethodPost, nv, spec, archive)
	if err != nil {
		return "", err
	}
	body, _, err := c.do(req)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(body)), nil
}

func (c *Client) UpdateArchive(ctx context.Context, nv model.NV, spec, archive []byte, key string) error {
	req, err := c.uploadRequest(ctx, http.MethodPut, nv, spec, archive)
	if err != nil {
		return err
	}
	req.Header.Set(KeyHeader, key)
	_, _, err = c.do(req)
	return err
}

func (c *Client) uploadRequest(ctx context.Context, method string, nv model.NV, spec, archive []byte) (*http.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("spec", model.SpecFileName(nv))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(spec); err != nil {
		return nil, err
	}
	if archive != nil {
		part, err = mw.CreateFormFile("archive", model.ArchiveFileName(nv))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(archive); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method,
		fmt.Sprintf("%s/packages/%s", c.base, nv), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	return c.do(req)
}

// do runs a request, mapping transport failures to ErrUnreachable and
// protocol refusals to the matching sentinel. The status code is
// returned so callers can tell 404s apart.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, status.ErrUnreachable.Wrap(err)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return body, resp.StatusCode, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return body, resp.StatusCode, status.ErrBadKey
	default:
		return body, resp.StatusCode, fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
}
