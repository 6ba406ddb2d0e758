package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/http-gpio/internal/auth"
	"github.com/nerrad567/http-gpio/internal/panel"
)

// Request body limits.
const (
	maxValueBody = 10
	maxBlinkBody = 4 << 10
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.rateLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAudit)

	r.Route("/gpio", func(r chi.Router) {
		r.Get("/", s.handleListControllers)
		r.Get("/{controller}", s.handleListPins)

		r.Route("/{controller}/{offset}", func(r chi.Router) {
			r.Use(s.pinMiddleware)

			r.Get("/", s.handleDescribePin)
			r.Get("/value", s.handleReadPin)

			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermPinOperate))
				r.With(maxBodyMiddleware(maxValueBody)).Post("/value", s.handleWritePin)
				r.With(maxBodyMiddleware(maxBlinkBody)).Post("/blink", s.handleBlinkPin)
			})
		})
	})

	if s.wsCfg.Enabled {
		wsPath := s.wsCfg.Path
		if wsPath == "" {
			wsPath = "/ws"
		}
		r.Get(wsPath, s.handleWebSocket)
		r.With(s.requirePermission(auth.PermPinRead)).Post(wsPath+"/ticket", s.handleWSTicket)
	}

	if s.cfg.Panel.Enabled {
		r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/ui/", http.StatusMovedPermanently)
		})
		r.Handle("/ui/*", http.StripPrefix("/ui", panel.Handler(s.cfg.Panel.Dir)))
	}

	return r
}
