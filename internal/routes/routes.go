package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stanmart1/rest-empire-sub000/internal/handlers"
	appmw "github.com/stanmart1/rest-empire-sub000/internal/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRoutes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Post("/auth/register", handlers.RegisterHandler)
	r.Post("/auth/login", handlers.LoginHandler)
	r.With(appmw.Authenticated).Get("/auth/me", handlers.MeHandler)

	r.With(appmw.Authenticated).Post("/purchases", handlers.PurchaseHandler)
	r.With(appmw.Authenticated).Get("/network/legs", handlers.LegsHandler)
	r.With(appmw.Authenticated).Get("/rank/progress", handlers.RankProgressHandler)

	r.With(appmw.Authenticated).Post("/payouts", handlers.RequestPayoutHandler)

	r.Route("/admin", func(r chi.Router) {
		r.Use(appmw.Authenticated)
		r.Post("/purchases/{id}/refund", handlers.RefundHandler)
		r.Post("/payouts/{id}/approve", handlers.ApprovePayoutHandler)
		r.Post("/payouts/{id}/reject", handlers.RejectPayoutHandler)
		r.Post("/payouts/{id}/complete", handlers.CompletePayoutHandler)
		r.Post("/members/{id}/adjust", handlers.ManualAdjustHandler)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
