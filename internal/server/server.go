package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"activityportal/internal/database"
	"activityportal/internal/portal"
)

//go:embed templates/*.html
var templateFS embed.FS

// ActionLister reads back the action log.
type ActionLister interface {
	RecentActions(ctx context.Context, activity string, limit int) ([]database.ActionLog, error)
}

type Options struct {
	// CSRFKey enables CSRF protection on the form posts when non-empty.
	CSRFKey           string
	SecureCookies     bool
	AdminUser         string
	AdminPasswordHash string
	DefaultLocale     language.Tag
}

type Server struct {
	portal   *portal.Portal
	logs     ActionLister
	router   *mux.Router
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
	opts     Options
	page     *template.Template
	protect  func(http.Handler) http.Handler
}

// New wires the routes. The hub must already be running; see Hub.Run.
func New(p *portal.Portal, logs ActionLister, hub *Hub, logger *zap.Logger, opts Options) (*Server, error) {
	page, err := template.New("page.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, err
	}

	if opts.DefaultLocale == language.Und {
		opts.DefaultLocale = language.English
	}

	s := &Server{
		portal: p,
		logs:   logs,
		router: mux.NewRouter(),
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  logger.With(zap.String("component", "server")),
		opts:    opts,
		page:    page,
		protect: func(h http.Handler) http.Handler { return h },
	}

	if opts.CSRFKey != "" {
		s.protect = csrf.Protect([]byte(opts.CSRFKey),
			csrf.Secure(opts.SecureCookies),
			csrf.Path("/"),
			csrf.FieldName("csrf_token"),
		)
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	// Activity names may contain "/", so route on the escaped path and
	// unescape the variable in the handler.
	s.router.UseEncodedPath()

	// HTML page and its form posts
	s.router.Handle("/", s.protect(http.HandlerFunc(s.handleIndex))).Methods("GET")
	s.router.Handle("/signup", s.protect(http.HandlerFunc(s.handleSignupForm))).Methods("POST")
	s.router.Handle("/unregister", s.protect(http.HandlerFunc(s.handleUnregisterForm))).Methods("POST")

	// API endpoints
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/activities", s.handleAPIActivities).Methods("GET")
	api.HandleFunc("/activities/{name}/signup", s.handleAPISignup).Methods("POST")
	api.HandleFunc("/activities/{name}/unregister", s.handleAPIUnregister).Methods("DELETE")
	api.HandleFunc("/actions", s.requireAdmin(s.handleActions)).Methods("GET")

	// Ops
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
