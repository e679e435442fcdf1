package route

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"qrscanner/internal/handler"
	"qrscanner/internal/logger"
	"qrscanner/internal/middleware"
	"qrscanner/internal/repository"
	"qrscanner/internal/service/result"
	hub "qrscanner/internal/service/websocket"
)

// Dependencies is everything the HTTP surface reads from or drives.
type Dependencies struct {
	Context    context.Context // lifetime of scans started over HTTP
	Scanner    handler.Controller
	Result     result.Reader
	Events     *hub.HubService
	Detections repository.DetectionRepository
	History    handler.Flusher
	Auth       *middleware.Auth
	Logger     *logger.Logger
	StaticDir  string
}

// SetupRoutes registers the API, log and auth endpoints. Mutating endpoints
// sit behind the password middleware.
func SetupRoutes(deps Dependencies) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scan", handler.ScanResultHandler(deps.Result, deps.Logger)).Methods(http.MethodGet)
	api.HandleFunc("/status", handler.StatusHandler(deps.Scanner, deps.Logger)).Methods(http.MethodGet)
	api.HandleFunc("/events", handler.EventsWebsocketHandler(deps.Events, deps.Logger)).Methods(http.MethodGet)
	api.HandleFunc("/detections", handler.GetDetectionsHandler(deps.Detections, deps.History, deps.Logger)).Methods(http.MethodGet)

	protected := r.NewRoute().Subrouter()
	protected.Use(deps.Auth.Middleware)
	protected.HandleFunc("/api/detections/clear", handler.ClearDetectionsHandler(deps.Detections, deps.Logger)).Methods(http.MethodPost)
	protected.HandleFunc("/api/scanner/start", handler.StartScanHandler(deps.Context, deps.Scanner, deps.Logger)).Methods(http.MethodPost)
	protected.HandleFunc("/api/scanner/stop", handler.StopScanHandler(deps.Scanner, deps.Logger)).Methods(http.MethodPost)
	protected.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(deps.Logger)).Methods(http.MethodPost)

	r.HandleFunc("/logs/{level}", handler.ShowLogsHandler(deps.Logger)).Methods(http.MethodGet)

	r.HandleFunc("/auth/login", handler.LoginHandler(deps.Auth)).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", handler.LogoutHandler).Methods(http.MethodPost)

	if deps.StaticDir != "" {
		r.PathPrefix("/").HandlerFunc(staticHandler(deps.StaticDir)).Methods(http.MethodGet, http.MethodHead)
	}

	return r
}

// staticHandler serves /path as <dir>/path.html when that file exists, and
// other files from dir as they are.
func staticHandler(dir string) http.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "/index"
		}

		page := filepath.Join(dir, filepath.Clean(path)+".html")
		if _, err := os.Stat(page); err == nil {
			http.ServeFile(w, r, page)
			return
		}
		files.ServeHTTP(w, r)
	}
}
