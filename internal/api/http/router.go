package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mind-engage/toximeter/internal/assessment"
	authmw "github.com/mind-engage/toximeter/internal/auth/middleware"
	"github.com/mind-engage/toximeter/internal/logger"
	"github.com/mind-engage/toximeter/internal/rbac"
)

// Container holds all dependencies for the router.
type Container struct {
	Service *assessment.Service
	Users   *authmw.Users
	Auth    *authmw.AuthService
	Events  EventSource
	Log     logger.Logger

	CORSOrigins []string
	// Checks are run by /readyz; a failing check makes the probe 503.
	Checks map[string]func(ctx context.Context) error
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	log := c.Log
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   c.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public
	r.Post("/auth/register", authmw.RegisterHandler(c.Users, c.Auth))
	r.Post("/auth/login", authmw.LoginHandler(c.Users, c.Auth))
	r.Get("/questions", ListQuestionsHandler(c.Service))
	r.Post("/score", ScoreHandler(c.Service))
	r.Get("/assessments/{id}", GetAssessmentHandler(c.Service))
	r.Get("/share/{shareID}", SharedAssessmentHandler(c.Service))

	// Authenticated (JWT -> stored role -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(c.Auth), authmw.AttachRoleFromDB(c.Users))

		pr.With(rbac.Require(rbac.PermAccountPassword)).
			Post("/auth/change-password", authmw.ChangePasswordHandler(c.Users))

		pr.With(rbac.Require(rbac.PermAssessmentSubmit)).
			Post("/assessments", SubmitAssessmentHandler(c.Service))
		pr.With(rbac.Require(rbac.PermAssessmentViewOwn)).
			Get("/assessments", HistoryHandler(c.Service))
		pr.With(rbac.Require(rbac.PermAssessmentDeleteOwn)).
			Delete("/assessments/{id}", DeleteAssessmentHandler(c.Service))

		pr.Route("/admin", func(ar chi.Router) {
			ar.Use(rbac.Require(rbac.PermQuestionManage))
			ar.Get("/questions", AdminListQuestionsHandler(c.Service))
			ar.Post("/questions", CreateQuestionHandler(c.Service))
			ar.Patch("/questions/{id}", UpdateQuestionHandler(c.Service))
			ar.Delete("/questions/{id}", DeleteQuestionHandler(c.Service))

			ar.Get("/users", ListUsersHandler(c.Users))
			ar.Patch("/users/{userID}/role", UpdateUserRoleHandler(c.Users))
			if c.Events != nil {
				ar.Get("/events", ListEventsHandler(c.Events))
			}
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(c.Checks))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func readyHandler(checks map[string]func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		out := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				out[name] = err.Error()
				continue
			}
			out[name] = "ok"
		}
		respondJSON(w, status, out)
	}
}
