package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"qledger/api/handlers"
	"qledger/ledger"
	"qledger/metrics"
	"qledger/tamper"
)

// Server represents the HTTP API server
type Server struct {
	ledger  *ledger.Ledger
	tamper  *tamper.Simulator
	metrics *metrics.Metrics
	addr    string
	router  *mux.Router
	log     *zap.Logger
}

// NewServer creates a new API server. sim and m may be nil, which leaves the
// tamper and metrics endpoints unregistered.
func NewServer(l *ledger.Ledger, sim *tamper.Simulator, m *metrics.Metrics, addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	server := &Server{
		ledger:  l,
		tamper:  sim,
		metrics: m,
		addr:    addr,
		router:  mux.NewRouter(),
		log:     log,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP endpoints
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)
	api := s.router.PathPrefix("/api").Subrouter()

	// Block endpoints
	api.HandleFunc("/blocks", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleListBlocks(w, r, s.ledger)
	}).Methods(http.MethodGet)
	api.HandleFunc("/blocks/{index:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleBlockByIndex(w, r, s.ledger)
	}).Methods(http.MethodGet)
	api.HandleFunc("/blocks/hash/{hash:[0-9a-f]+}", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleBlockByHash(w, r, s.ledger)
	}).Methods(http.MethodGet)

	// Chain endpoints
	api.HandleFunc("/chain/height", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleChainHeight(w, r, s.ledger)
	}).Methods(http.MethodGet)
	api.HandleFunc("/chain/head", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleChainHead(w, r, s.ledger)
	}).Methods(http.MethodGet)
	api.HandleFunc("/chain/validate", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleValidate(w, r, s.ledger)
	}).Methods(http.MethodGet)
	api.HandleFunc("/chain/print", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandlePrint(w, r, s.ledger)
	}).Methods(http.MethodGet)

	// Transaction endpoints
	api.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleTransactions(w, r, s.ledger, s.log)
	}).Methods(http.MethodPost)

	if s.tamper != nil {
		api.HandleFunc("/tamper/{index:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
			handlers.HandleTamper(w, r, s.tamper)
		}).Methods(http.MethodPost)
	}

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
