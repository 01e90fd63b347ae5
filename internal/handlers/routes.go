package handlers

import "net/http"

// NewRouter registers the API routes and wraps them with request logging
func NewRouter(progress *ProgressHandler, health *HealthHandler, mw *Middleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Health)

	// Module content
	mux.HandleFunc("GET /api/modules/{moduleId}", mw.Protected(progress.GetModule))

	// Progress tracking
	mux.HandleFunc("POST /api/progress/start", mw.Protected(progress.StartProgress))
	mux.HandleFunc("POST /api/progress/update", mw.Protected(progress.UpdateProgress))
	mux.HandleFunc("POST /api/progress/complete", mw.Protected(progress.CompleteProgress))
	mux.HandleFunc("GET /api/progress/modules/{moduleId}", mw.Protected(progress.GetModuleProgress))
	mux.HandleFunc("GET /api/progress/submodules/{subModuleId}", mw.Protected(progress.GetSubModuleProgress))
	mux.HandleFunc("GET /api/access/submodules/{subModuleId}", mw.Protected(progress.CheckAccess))

	// Quiz attempts
	mux.HandleFunc("GET /api/students/{studentId}/quiz-attempts", mw.Protected(progress.GetQuizAttempts))
	mux.HandleFunc("POST /api/quiz-attempts", mw.Protected(progress.SubmitQuizAttempt))

	return Logging(mux)
}
