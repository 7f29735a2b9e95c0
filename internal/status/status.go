// Package status is optional HTTP endpoint of bridge daemon:
// counters and latest stored observations.
package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/evtele/easee/internal/bridge"
	"github.com/evtele/easee/internal/sink"
	"github.com/evtele/easee/log2"
	"github.com/evtele/easee/tele/signalr"
	"github.com/go-chi/chi/v5"
	"github.com/juju/errors"
)

type Config struct {
	// Empty disables status server.
	Listen string `hcl:"listen"`
}

// Latester is read side of SQLite sink.
type Latester interface {
	Latest(ctx context.Context, chargerID string) ([]sink.Record, error)
}

type Options struct {
	Log    *log2.Log
	Bridge func() bridge.Stat
	Stream func() signalr.StatSnapshot
	// nil responds 404 on latest
	Latest Latester
}

type Server struct {
	opt   Options
	start time.Time
	srv   *http.Server
	addr  string
}

type statResponse struct {
	UptimeSec int64                `json:"uptime_sec"`
	Bridge    bridge.Stat          `json:"bridge"`
	Stream    signalr.StatSnapshot `json:"stream"`
}

func NewServer(opt Options) *Server {
	return &Server{opt: opt, start: time.Now()}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/stat", s.getStat)
	r.Get("/chargers/{chargerId}/latest", s.getLatest)
	return r
}

func (s *Server) getStat(w http.ResponseWriter, r *http.Request) {
	resp := statResponse{UptimeSec: int64(time.Since(s.start) / time.Second)}
	if s.opt.Bridge != nil {
		resp.Bridge = s.opt.Bridge()
	}
	if s.opt.Stream != nil {
		resp.Stream = s.opt.Stream()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getLatest(w http.ResponseWriter, r *http.Request) {
	if s.opt.Latest == nil {
		http.Error(w, "sqlite sink disabled", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "chargerId")
	rs, err := s.opt.Latest.Latest(r.Context(), id)
	if err != nil {
		s.opt.Log.Errorf("status: latest charger=%s err=%v", id, err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if rs == nil {
		rs = []sink.Record{}
	}
	s.writeJSON(w, http.StatusOK, rs)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.opt.Log.Debugf("status: write response err=%v", err)
	}
}

// Start listens on addr and serves in background until Stop.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Annotatef(err, "status listen=%s", addr)
	}
	s.addr = ln.Addr().String()
	s.srv = &http.Server{Handler: s.Routes(), ReadHeaderTimeout: 10 * time.Second}
	s.opt.Log.Infof("status: listen=%s", s.addr)
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.opt.Log.Errorf("status: serve err=%v", err)
		}
	}()
	return nil
}

// Addr is actual listen address, useful with port 0.
func (s *Server) Addr() string { return s.addr }

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return errors.Annotate(s.srv.Shutdown(ctx), "status stop")
}
