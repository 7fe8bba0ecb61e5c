package api

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/sksmith/video-shoppe/config"
)

type EnvApi struct {
	cfg *config.Config
}

func NewEnvApi(cfg *config.Config) *EnvApi {
	return &EnvApi{cfg: cfg}
}

func (a *EnvApi) ConfigureRouter(r chi.Router) {
	r.Get("/", a.Get)
}

func (a *EnvApi) Get(w http.ResponseWriter, r *http.Request) {
	Render(w, r, NewEnvResponse(*a.cfg))
}

type EnvResponse struct {
	config.Config
}

func NewEnvResponse(c config.Config) *EnvResponse {
	resp := &EnvResponse{Config: c}
	return resp
}

func (er *EnvResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	Scrub(er)
	return nil
}
