package api

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/video-shoppe/config"
	"github.com/sksmith/video-shoppe/core/rental"
)

const (
	ApiPath      = "/api/v1"
	CheckoutPath = "/checkouts"
	RentalPath   = "/rentals"
	CustomerPath = "/customers"
	ItemPath     = "/items"
	EmployeePath = "/employees"
	HealthPath   = "/health"
	MetricsPath  = "/metrics"
	EnvPath      = "/env"
)

func ConfigureRouter(cfg *config.Config, rentalSvc rental.Service, employeeSvc EmployeeService) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Http.AllowedOrigins.Value,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(Logging)

	r.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("UP"))
	})
	r.Handle(MetricsPath, promhttp.Handler())
	r.Route(EnvPath, NewEnvApi(cfg).ConfigureRouter)

	limiter := NewAuthLimiter(cfg.Http.AuthFailures.Value, cfg.Http.AuthFailureInterval())
	r.With(Authenticate(employeeSvc, limiter)).Route(ApiPath, func(r chi.Router) {
		rentalApi := NewRentalApi(rentalSvc)
		r.Route(CheckoutPath, rentalApi.ConfigureCheckoutRouter)
		r.Route(RentalPath, rentalApi.ConfigureRouter)
		r.Route(CustomerPath, NewCustomerApi(rentalSvc).ConfigureRouter)
		r.Route(ItemPath, NewItemApi(rentalSvc).ConfigureRouter)
		r.Route(EmployeePath, NewEmployeeApi(employeeSvc).ConfigureRouter)
	})

	return r
}

func Render(w http.ResponseWriter, r *http.Request, rnd render.Renderer) {
	if err := render.Render(w, r, rnd); err != nil {
		log.Warn().Err(err).Msg("failed to render")
	}
}

func RenderList(w http.ResponseWriter, r *http.Request, l []render.Renderer) {
	if err := render.RenderList(w, r, l); err != nil {
		log.Warn().Err(err).Msg("failed to render")
	}
}
