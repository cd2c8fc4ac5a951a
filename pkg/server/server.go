// Package server exposes a Paradox table over HTTP and pushes updates
// to WebSocket clients when the table files change on disk.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/pxbase/pxread/pkg/export"
	"github.com/pxbase/pxread/pkg/pxdata"
	"github.com/pxbase/pxread/pkg/snapshot"
	"github.com/pxbase/pxread/pkg/watcher"
)

// Options configures a Server.
type Options struct {
	// DBPath is the .db file to serve.
	DBPath string
	// BlobPath is the .MB side file, empty when the table has none.
	BlobPath string
	// Password unlocks an encrypted table.
	Password string
	// Decode options forwarded to every session the server opens.
	Decode *pxdata.Options
	// Snapshot copies the table files before each open, for tables a
	// live application rewrites in place.
	Snapshot bool
	// Origins lists allowed WebSocket origins. Empty allows only
	// requests without an Origin header.
	Origins []string
}

// Server serves table contents over HTTP and WebSocket.
type Server struct {
	router  *mux.Router
	opts    Options
	log     *logrus.Logger
	watcher *watcher.TableWatcher

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]bool
	upgrader  websocket.Upgrader
}

// New creates a server for one table.
func New(opts Options) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		opts:    opts,
		log:     logrus.StandardLogger(),
		clients: make(map[*websocket.Conn]bool),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.routes()
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// No Origin header means a direct (non-browser) connection.
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.Origins {
		if origin == allowed {
			return true
		}
	}
	s.log.Warnf("rejected WebSocket origin %s", origin)
	return false
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/info", s.handleInfo).Methods("GET")
	s.router.HandleFunc("/api/records", s.handleRecords).Methods("GET")
	s.router.HandleFunc("/api/codepage", s.handleCodepage).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// openSession opens a fresh session for one request. The returned
// cleanup closes the session and releases any snapshot.
func (s *Server) openSession() (*pxdata.Session, func(), error) {
	dbPath, mbPath := s.opts.DBPath, s.opts.BlobPath
	release := func() {}

	if s.opts.Snapshot {
		snap, err := snapshot.Take(dbPath, mbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot failed: %w", err)
		}
		dbPath, mbPath = snap.DBPath, snap.MBPath
		release = func() { snap.Release() }
	}

	sess, err := pxdata.Open(dbPath, s.opts.Password, s.opts.Decode)
	if err != nil {
		release()
		return nil, nil, err
	}
	if mbPath != "" {
		if ok, err := sess.SetBlobFile(mbPath); !ok {
			s.log.Warnf("blob file not attached: %v", err)
		}
	}
	return sess, func() {
		sess.Close()
		release()
	}, nil
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	sess, done, err := s.openSession()
	if err != nil {
		httpError(w, err)
		return
	}
	defer done()

	meta, err := sess.GetMetadata()
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"success":     true,
		"file":        filepath.Base(s.opts.DBPath),
		"num_records": meta.NumRecords,
		"num_fields":  meta.NumFields,
		"fields":      meta.Fields,
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	rows, err := s.currentRows()
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"success": true,
		"count":   len(rows),
		"records": rows,
	})
}

func (s *Server) handleCodepage(w http.ResponseWriter, r *http.Request) {
	sess, done, err := s.openSession()
	if err != nil {
		httpError(w, err)
		return
	}
	defer done()

	name, ok, err := sess.GetCodepage()
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"success":  true,
		"codepage": name,
		"recorded": ok,
	})
}

// currentRows reads the table once and flattens it to row maps.
func (s *Server) currentRows() ([]map[string]interface{}, error) {
	sess, done, err := s.openSession()
	if err != nil {
		return nil, err
	}
	defer done()

	ds, err := sess.GetData()
	if err != nil {
		return nil, err
	}
	return export.Rows(ds), nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.log.Infof("websocket client connected (total %d)", count)

	s.sendInitial(conn)

	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, conn)
			s.clientsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) sendInitial(conn *websocket.Conn) {
	rows, err := s.currentRows()
	if err != nil {
		s.log.Warnf("failed to read table: %v", err)
		return
	}
	msg := map[string]interface{}{
		"type":        "initial",
		"timestamp":   time.Now().Format(time.RFC3339),
		"records":     rows,
		"total_count": len(rows),
	}
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Warnf("websocket send failed: %v", err)
	}
}

// broadcast pushes the full current table to every connected client.
func (s *Server) broadcast() {
	s.clientsMu.RLock()
	count := len(s.clients)
	s.clientsMu.RUnlock()
	if count == 0 {
		return
	}

	rows, err := s.currentRows()
	if err != nil {
		s.log.Warnf("failed to read table: %v", err)
		return
	}
	msg := map[string]interface{}{
		"type":        "update",
		"timestamp":   time.Now().Format(time.RFC3339),
		"records":     rows,
		"total_count": len(rows),
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for conn := range s.clients {
		go func(c *websocket.Conn) {
			if err := c.WriteJSON(msg); err != nil {
				s.log.Warnf("websocket send failed: %v", err)
			}
		}(conn)
	}
}

// StartWatching broadcasts updates when the table files change.
func (s *Server) StartWatching(debounce time.Duration) error {
	tw, err := watcher.New()
	if err != nil {
		return err
	}
	s.watcher = tw

	err = tw.WatchTable(s.opts.DBPath, s.opts.BlobPath, func(path string) {
		s.log.Infof("table file changed: %s", filepath.Base(path))
		s.broadcast()
	}, debounce)
	if err != nil {
		return fmt.Errorf("failed to watch table: %w", err)
	}
	tw.Start()
	return nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server on addr, blocking until it fails.
func (s *Server) Start(addr string) error {
	s.log.Infof("serving %s on %s", filepath.Base(s.opts.DBPath), addr)
	return http.ListenAndServe(addr, s.router)
}

// Close releases the watcher.
func (s *Server) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, err error) {
	http.Error(w, fmt.Sprintf("table access failed: %v", err), http.StatusInternalServerError)
}
