package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/employee"
)

type EmployeeService interface {
	Create(ctx context.Context, caller core.Caller, req employee.CreateEmployeeRequest) (employee.Employee, error)
	Delete(ctx context.Context, caller core.Caller, username string) error
	Login(ctx context.Context, username, password string) (employee.Employee, error)
}

type EmployeeApi struct {
	service EmployeeService
}

func NewEmployeeApi(service EmployeeService) *EmployeeApi {
	return &EmployeeApi{service: service}
}

func (a *EmployeeApi) ConfigureRouter(r chi.Router) {
	r.Use(AdminOnly)
	r.Post("/", a.Create)
	r.Delete("/{username}", a.Delete)
}

type CreateEmployeeRequestDto struct {
	*employee.CreateEmployeeRequest
	Password string `json:"password,omitempty"`
}

func (p *CreateEmployeeRequestDto) Bind(_ *http.Request) error {
	if p.CreateEmployeeRequest == nil || p.Username == "" || p.Password == "" {
		return errors.New("missing required field(s)")
	}

	p.CreateEmployeeRequest.PlainTextPassword = p.Password

	return nil
}

type EmployeeResponse struct {
	Username string    `json:"username"`
	IsAdmin  bool      `json:"isAdmin"`
	Created  time.Time `json:"created"`
}

func (e *EmployeeResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func (a *EmployeeApi) Create(w http.ResponseWriter, r *http.Request) {
	data := &CreateEmployeeRequestDto{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	e, err := a.service.Create(r.Context(), CallerFrom(r.Context()), *data.CreateEmployeeRequest)
	if err != nil {
		Render(w, r, ErrFrom(err))
		return
	}

	render.Status(r, http.StatusCreated)
	Render(w, r, &EmployeeResponse{Username: e.Username, IsAdmin: e.IsAdmin, Created: e.Created})
}

func (a *EmployeeApi) Delete(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Delete(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "username")); err != nil {
		Render(w, r, ErrFrom(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
