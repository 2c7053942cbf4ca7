// Package httpd runs the package repository daemon.
//
// The route table in this package mirrors the client in
// pkg/remote/httpapi: package listing, spec and archive downloads,
// and multipart publication uploads. The server harness listens on
// tcp or a unix domain socket and drains connections on shutdown.
// TLS termination is left to a fronting proxy; remotes are addressed
// as plain host:port.
package httpd

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-openapi/runtime/flagext"
	"github.com/go-openapi/swag"
	"github.com/silene/opam/pkg/model"
	flag "github.com/spf13/pflag"
	"golang.org/x/net/netutil"
)

const (
	schemeHTTP = "http"
	schemeUnix = "unix"
)

var defaultSchemes = []string{schemeHTTP}

var (
	enabledListeners []string
	cleanupTimeout   time.Duration
	maxHeaderSize    flagext.ByteSize

	socketPath string

	host         string
	port         int
	listenLimit  int
	keepAlive    time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
)

func init() {
	maxHeaderSize = flagext.ByteSize(1000000)
	host = stringEnvOverride(host, "localhost", "HOST")
	port = intEnvOverride(port, model.DefaultServerPort, "PORT")
}

// RegisterFlags ties the server settings to the specified pflag set.
func RegisterFlags(fs *flag.FlagSet) {
	fs.StringSliceVar(&enabledListeners, "scheme", defaultSchemes, "the listeners to enable, this can be repeated")
	fs.DurationVar(&cleanupTimeout, "cleanup-timeout", 10*time.Second, "grace period for which to wait before shutting down the server")
	fs.Var(&maxHeaderSize, "max-header-size", "controls the maximum number of bytes the server will read parsing the request header's keys and values, including the request line. It does not limit the size of the request body")

	fs.StringVar(&socketPath, "socket-path", "/var/run/opamd.sock", "the unix socket to listen on")

	fs.StringVar(&host, "host", host, "the IP to listen on")
	fs.IntVar(&port, "port", port, "the port to listen on for package traffic")
	fs.IntVar(&listenLimit, "listen-limit", 0, "limit the number of outstanding requests")
	fs.DurationVar(&keepAlive, "keep-alive", 3*time.Minute, "sets the TCP keep-alive timeouts on accepted connections. It prunes dead TCP connections ( e.g. closing laptop mid-download)")
	fs.DurationVar(&readTimeout, "read-timeout", 30*time.Second, "maximum duration before timing out read of the request")
	fs.DurationVar(&writeTimeout, "write-timeout", 30*time.Second, "maximum duration before timing out write of the response")
}

func stringEnvOverride(orig string, def string, keys ...string) string {
	for _, k := range keys {
		if os.Getenv(k) != "" {
			return os.Getenv(k)
		}
	}
	if def != "" && orig == "" {
		return def
	}
	return orig
}

func intEnvOverride(orig int, def int, keys ...string) int {
	for _, k := range keys {
		if os.Getenv(k) != "" {
			v, err := strconv.Atoi(os.Getenv(k))
			if err != nil {
				fmt.Fprintln(os.Stderr, k, "is not a valid number")
				os.Exit(1)
			}
			return v
		}
	}
	if def != 0 && orig == 0 {
		return def
	}
	return orig
}

// Option for the server
type Option func(*defaultServer)

// HandlesRequestsWith handles the http requests to the server
func HandlesRequestsWith(h http.Handler) Option {
	return func(s *defaultServer) {
		s.handler = h
	}
}

// LogsWith provides a logger to the server
func LogsWith(l Logging) Option {
	return func(s *defaultServer) {
		s.logger = l
	}
}

// EnablesSchemes overrides the enabled schemes
func EnablesSchemes(schemes ...string) Option {
	return func(s *defaultServer) {
		s.EnabledListeners = schemes
	}
}

// OnShutdown runs the provided functions on shutdown
func OnShutdown(handlers ...func()) Option {
	return func(s *defaultServer) {
		if len(handlers) == 0 {
			return
		}
		s.onShutdown = func() {
			for _, run := range handlers {
				run()
			}
		}
	}
}

// New creates a package repository server but does not configure it
func New(opts ...Option) Server {
	s := new(defaultServer)

	s.EnabledListeners = enabledListeners
	s.CleanupTimeout = cleanupTimeout
	s.MaxHeaderSize = maxHeaderSize
	s.SocketPath = socketPath
	s.Host = host
	s.Port = port
	s.ListenLimit = listenLimit
	s.KeepAlive = keepAlive
	s.ReadTimeout = readTimeout
	s.WriteTimeout = writeTimeout
	s.shutdown = make(chan struct{})
	s.interrupt = make(chan os.Signal, 1)
	s.logger = &stdLogger{}
	s.onShutdown = func() {}

	for _, apply := range opts {
		apply(s)
	}
	return s
}

type defaultServer struct {
	EnabledListeners []string
	CleanupTimeout   time.Duration
	MaxHeaderSize    flagext.ByteSize

	SocketPath    string
	domainSocketL net.Listener

	Host         string
	Port         int
	ListenLimit  int
	KeepAlive    time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	httpServerL  net.Listener

	handler      http.Handler
	hasListeners bool
	shutdown     chan struct{}
	shuttingDown int32
	interrupted  bool
	interrupt    chan os.Signal
	onShutdown   func()
	logger       Logging
}

func (s *defaultServer) hasScheme(scheme string) bool {
	schemes := s.EnabledListeners
	if len(schemes) == 0 {
		schemes = defaultSchemes
	}

	for _, v := range schemes {
		if v == scheme {
			return true
		}
	}
	return false
}

// Serve package traffic until interrupted or shut down.
func (s *defaultServer) Serve() (err error) {
	if !s.hasListeners {
		if err = s.Listen(); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	once := new(sync.Once)
	signalNotify(s.interrupt)
	go handleInterrupt(once, s)

	servers := []*http.Server{}
	wg.Add(1)
	go s.handleShutdown(&wg, &servers)

	if s.hasScheme(schemeUnix) {
		domainSocket := new(http.Server)
		domainSocket.MaxHeaderBytes = int(s.MaxHeaderSize)
		domainSocket.Handler = s.handler
		if int64(s.CleanupTimeout) > 0 {
			domainSocket.IdleTimeout = s.CleanupTimeout
		}

		wg.Add(1)
		s.logger.Printf("Serving at unix://%s", s.SocketPath)
		go func(l net.Listener) {
			defer wg.Done()
			if derr := domainSocket.Serve(l); derr != nil && derr != http.ErrServerClosed {
				s.logger.Fatalf("%v", derr)
			}
			s.logger.Printf("Stopped serving at unix://%s", s.SocketPath)
		}(s.domainSocketL)
		servers = append(servers, domainSocket)
	}

	if s.hasScheme(schemeHTTP) {
		httpServer := new(http.Server)
		httpServer.MaxHeaderBytes = int(s.MaxHeaderSize)
		httpServer.ReadTimeout = s.ReadTimeout
		httpServer.WriteTimeout = s.WriteTimeout
		httpServer.SetKeepAlivesEnabled(int64(s.KeepAlive) > 0)
		if s.ListenLimit > 0 {
			s.httpServerL = netutil.LimitListener(s.httpServerL, s.ListenLimit)
		}

		if int64(s.CleanupTimeout) > 0 {
			httpServer.IdleTimeout = s.CleanupTimeout
		}

		httpServer.Handler = s.handler

		wg.Add(1)
		s.logger.Printf("Serving at http://%s", s.httpServerL.Addr())
		go func(l net.Listener) {
			defer wg.Done()
			if herr := httpServer.Serve(l); herr != nil && herr != http.ErrServerClosed {
				s.logger.Fatalf("%v", herr)
			}
			s.logger.Printf("Stopped serving at http://%s", l.Addr())
		}(s.httpServerL)
		servers = append(servers, httpServer)
	}

	wg.Wait()
	return nil
}

// Listen creates the listeners for the server
func (s *defaultServer) Listen() error {
	if s.hasListeners { // already done this
		return nil
	}

	if s.hasScheme(schemeUnix) {
		domSockListener, err := net.Listen("unix", string(s.SocketPath))
		if err != nil {
			return err
		}
		s.domainSocketL = domSockListener
	}

	if s.hasScheme(schemeHTTP) {
		listener, err := net.Listen("tcp", net.JoinHostPort(s.Host, strconv.Itoa(s.Port)))
		if err != nil {
			return err
		}

		h, p, err := swag.SplitHostPort(listener.Addr().String())
		if err != nil {
			return err
		}
		s.Host = h
		s.Port = p
		s.httpServerL = listener
	}

	s.hasListeners = true
	return nil
}

// Shutdown server and clean up resources
func (s *defaultServer) Shutdown() error {
	if atomic.CompareAndSwapInt32(&s.shuttingDown, 0, 1) {
		close(s.shutdown)
	}
	return nil
}

func (s *defaultServer) handleShutdown(wg *sync.WaitGroup, serversPtr *[]*http.Server) {
	// wg.Done must occur last, after the onShutdown callbacks
	defer wg.Done()

	<-s.shutdown

	servers := *serversPtr

	ctx, cancel := context.WithTimeout(context.TODO(), 15*time.Second)
	defer cancel()

	shutdownChan := make(chan bool)
	for i := range servers {
		server := servers[i]
		go func() {
			var success bool
			defer func() {
				shutdownChan <- success
			}()
			if err := server.Shutdown(ctx); err != nil {
				// Error from closing listeners, or context timeout:
				s.logger.Printf("HTTP server Shutdown: %v", err)
			} else {
				success = true
			}
		}()
	}

	// Wait until all listeners have successfully shut down
	success := true
	for range servers {
		success = success && <-shutdownChan
	}
	if success {
		if s.onShutdown != nil {
			s.onShutdown()
		}
	}
}

// GetHandler returns a handler useful for testing
func (s *defaultServer) GetHandler() http.Handler {
	return s.handler
}

// UnixListener returns the domain socket listener
func (s *defaultServer) UnixListener() (net.Listener, error) {
	if !s.hasListeners {
		if err := s.Listen(); err != nil {
			return nil, err
		}
	}
	return s.domainSocketL, nil
}

// HTTPListener returns the http listener
func (s *defaultServer) HTTPListener() (net.Listener, error) {
	if !s.hasListeners {
		if err := s.Listen(); err != nil {
			return nil, err
		}
	}
	return s.httpServerL, nil
}

func handleInterrupt(once *sync.Once, s *defaultServer) {
	once.Do(func() {
		for range s.interrupt {
			if s.interrupted {
				continue
			}
			s.logger.Printf("Shutting down... ")
			s.interrupted = true
			if err := s.Shutdown(); err != nil {
				s.logger.Printf("[WARN] error during server shutdown: %v", err)
			}
		}
	})
}

func signalNotify(interrupt chan<- os.Signal) {
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
}

// Server is the interface the package daemon's harness implements
type Server interface {
	GetHandler() http.Handler
	HTTPListener() (net.Listener, error)
	UnixListener() (net.Listener, error)
	Listen() error
	Serve() error
	Shutdown() error
}

// Logging the logger interface for the server
type Logging interface {
	Printf(string, ...interface{})
	Fatalf(string, ...interface{})
}

type stdLogger struct {
}

func (s *stdLogger) Printf(format string, args ...interface{}) {
	log.Printf(format, args...)
}
func (s *stdLogger) Fatalf(format string, args ...interface{}) {
	log.Fatalf(format, args...)
}
