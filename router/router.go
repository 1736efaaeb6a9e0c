package router

import (
	"net/http"
	"strings"

	"portfoliocms/config"
	"portfoliocms/internal/auth"
	contentHandler "portfoliocms/internal/content"
	"portfoliocms/internal/content/service"
	"portfoliocms/internal/upload"
	"portfoliocms/middleware"
	"portfoliocms/pkg/metrics"
	"portfoliocms/pkg/respond"
	"portfoliocms/socket"
	"portfoliocms/store"
)

// MaxJSONBody caps JSON request bodies.
const MaxJSONBody = 10 << 20

// Deps are the long-lived components the routes are served from.
type Deps struct {
	Config  *config.Config
	Store   *store.ContentStore
	Hub     *socket.Hub
	Auth    *auth.Service
	Uploads *upload.Service
}

func Setup(d Deps) http.Handler {
	mux := http.NewServeMux()
	cfg := d.Config

	authMw := middleware.AuthMiddleware(d.Auth.Tokens)
	jsonBody := middleware.MaxBody(MaxJSONBody)
	protected := func(h http.HandlerFunc) http.Handler {
		return authMw(jsonBody(h))
	}

	// WebSocket. Without a hub there is no live feed and changes are not
	// announced.
	var broadcaster service.Broadcaster
	if d.Hub != nil {
		broadcaster = d.Hub
		upgrader := socket.NewUpgrader(cfg.FrontendURL)
		mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
			socket.ServeWs(d.Hub, upgrader, w, r)
		})
	}

	// Auth
	authHandler := auth.NewHandler(d.Auth, middleware.AdminFromRequest)
	loginLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthAttempts, cfg.RateLimit.AuthWindow,
		"Too many login attempts", "Please try again later")
	mux.Handle("POST /api/auth/login", loginLimiter.Middleware(jsonBody(http.HandlerFunc(authHandler.Login))))
	mux.Handle("GET /api/auth/verify", protected(authHandler.Verify))
	mux.Handle("POST /api/auth/logout", protected(authHandler.Logout))

	// Content
	contentService := service.NewContentService(d.Store, broadcaster)
	content := contentHandler.NewContentHandler(contentService, d.Store.EngineName())

	mux.HandleFunc("GET /api/health", content.Health)
	mux.HandleFunc("GET /api/content", content.GetContent)
	mux.HandleFunc("GET /api/content/{section}", content.GetSection)
	mux.Handle("PUT /api/content/{section}", protected(content.UpdateSection))
	mux.Handle("POST /api/content/{section}/items", protected(content.AddItem))
	mux.Handle("PUT /api/content/{section}/items/{id}", protected(content.UpdateItem))
	mux.Handle("DELETE /api/content/{section}/items/{id}", protected(content.DeleteItem))
	mux.Handle("POST /api/backup/restore", protected(content.RestoreBackup))

	// Uploads carry their own multipart size limit.
	uploads := upload.NewHandler(d.Uploads)
	mux.Handle("POST /api/upload", authMw(http.HandlerFunc(uploads.Upload)))
	mux.Handle("GET /api/upload/list", authMw(http.HandlerFunc(uploads.List)))
	mux.Handle("DELETE /api/upload/{filename}", authMw(http.HandlerFunc(uploads.Delete)))
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", noDirListing(http.FileServer(http.Dir(d.Uploads.Dir)))))

	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "Not found", "The requested endpoint does not exist")
	})

	apiLimiter := middleware.NewRateLimiter(cfg.RateLimit.APIRequests, cfg.RateLimit.APIWindow,
		"Too many requests", "Please try again later")

	var h http.Handler = mux
	h = limitAPI(apiLimiter, h)
	h = middleware.CORSMiddleware(cfg.FrontendURL)(h)
	h = middleware.SecurityHeaders(h)
	return middleware.RequestLogger(h)
}

// limitAPI applies the limiter to /api routes only; static files and the
// websocket feed are not counted.
func limitAPI(rl *middleware.RateLimiter, next http.Handler) http.Handler {
	limited := rl.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
