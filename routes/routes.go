package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/mindscreen/app"
	"github.com/upb/mindscreen/handlers"
	"github.com/upb/mindscreen/middleware"
	"github.com/upb/mindscreen/utils"
)

const requestTimeout = 60 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	origins := deps.Config.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.UserIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.DB.DB, deps.Resources, deps.Logger)
	assessments := handlers.NewAssessmentHandler(deps.Assessments, deps.Logger)
	resources := handlers.NewResourceHandler(deps.Resources, deps.Logger)
	auditLogs := handlers.NewAuditHandler(deps.AuditService, deps.Logger)
	identity := deps.IdentityMiddleware

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/questionnaires", func(r chi.Router) {
			r.Get("/", assessments.HandleListQuestionnaires)
			r.Post("/", assessments.HandleCreateQuestionnaire)
			r.Get("/{id}", assessments.HandleGetQuestionnaire)
		})

		r.Route("/assessments", func(r chi.Router) {
			r.Use(identity.RequireUser)
			r.Post("/", assessments.HandleStartAssessment)
			r.Get("/history", assessments.HandleHistory)
			r.Post("/{id}/submit", assessments.HandleSubmitAssessment)
			r.Get("/{id}/risk", assessments.HandleGetRiskScore)
		})

		r.Route("/risk", func(r chi.Router) {
			r.With(identity.RequireUser).Get("/latest", assessments.HandleLatestRiskScore)
			// Stateless scoring, nothing is stored
			r.Post("/classify", assessments.HandleClassify)
		})

		r.Route("/resources", func(r chi.Router) {
			r.With(identity.OptionalUser).Post("/search", resources.HandleSearch)
			r.Get("/risk/{level}", resources.HandleByRiskLevel)
		})

		r.Get("/knowledge/stats", resources.HandleKnowledgeStats)

		r.Route("/audit", func(r chi.Router) {
			r.Get("/logs", auditLogs.HandleListLogs)
			r.Get("/stats", auditLogs.HandleStats)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "endpoint not found", nil)
	})

	return r
}
