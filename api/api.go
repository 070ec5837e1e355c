package api

import (
	"context"
	"crypto/tls"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/grafana/hitcounter/mode"
	"github.com/grafana/hitcounter/series"
	opentracing "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"
	"gopkg.in/macaron.v1"
)

// Counter is what the hit endpoints need from counter.Service
type Counter interface {
	IncrementAndRecord(ctx context.Context, id series.ID) uint64
	QueryWindow(ctx context.Context, id series.ID, window uint32) ([]series.Point, error)
}

type Server struct {
	Addr          string
	SSL           bool
	certFile      string
	keyFile       string
	useGzip       bool
	Macaron       *macaron.Macaron
	Mode          mode.Mode
	Counter       Counter
	Tracer        opentracing.Tracer
	MetricsWindow uint32 // seconds

	random   func() int
	shutdown chan struct{}
}

func (s *Server) BindCounter(c Counter) {
	s.Counter = c
}

func (s *Server) BindTracer(tracer opentracing.Tracer) {
	s.Tracer = tracer
}

// BindRandom sets the source of the random numbers handed out with every hit.
// It must be safe for concurrent use.
func (s *Server) BindRandom(fn func() int) {
	s.random = fn
}

func NewServer(m mode.Mode) (*Server, error) {
	m, err := mode.Parse(m.String())
	if err != nil {
		return nil, err
	}

	r := macaron.New()
	r.Use(macaron.Recovery())

	window := metricsWindow
	if window == 0 {
		window = 86400
	}

	return &Server{
		Addr:          Addr,
		SSL:           UseSSL,
		certFile:      certFile,
		keyFile:       keyFile,
		useGzip:       useGzip,
		Macaron:       r,
		Mode:          m,
		Tracer:        opentracing.NoopTracer{},
		MetricsWindow: window,
		random: func() int {
			return rand.Intn(10) + 1
		},
		shutdown: make(chan struct{}),
	}, nil
}

func (s *Server) Run() {
	s.RegisterRoutes()
	proto := "http"
	if s.SSL {
		proto = "https"
	}
	log.Infof("API Listening on: %v://%s/ in %s mode", proto, s.Addr, s.Mode)

	// define our own listener so we can call Close on it
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		log.Fatalf("API failed to listen on %s, %s", s.Addr, err.Error())
	}
	go s.handleShutdown(l)
	srv := http.Server{
		Addr:        s.Addr,
		Handler:     s.Macaron,
		ReadTimeout: 5 * time.Minute,
	}
	if s.SSL {
		cert, err := tls.LoadX509KeyPair(s.certFile, s.keyFile)
		if err != nil {
			log.Fatalf("API Failed to start server: %v", err)
		}
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{"http/1.1"},
		}
		tlsListener := tls.NewListener(tcpKeepAliveListener{l.(*net.TCPListener)}, srv.TLSConfig)
		err = srv.Serve(tlsListener)
	} else {
		err = srv.Serve(tcpKeepAliveListener{l.(*net.TCPListener)})
	}

	if err != nil {
		log.Infof("API %s", err.Error())
	}
}

func (s *Server) Stop() {
	close(s.shutdown)
}

func (s *Server) handleShutdown(l net.Listener) {
	<-s.shutdown
	log.Info("API shutdown started.")
	l.Close()
}

type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (ln tcpKeepAliveListener) Accept() (c net.Conn, err error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
