package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/pitchlab/salescoach/internal/scenario"
)

func RegisterRoutes(
	r chi.Router,
	hScenario *scenario.Handler,
	hWS *WSHandler,
) {
	// --- realtime канал ---
	r.Get("/ws", hWS.Serve)

	// --- сценарии ---
	r.Route("/scenarios", func(pr chi.Router) {
		pr.Use(
			httputil.RecoverMiddleware,
			httprate.LimitByIP(60, time.Minute),
		)

		pr.Get("/", hScenario.List)
		pr.Post("/", hScenario.Create)
		pr.Get("/{scenario_id}", hScenario.Get)
		pr.Delete("/{scenario_id}", hScenario.Delete)
	})

	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("pong"))
	})
}
