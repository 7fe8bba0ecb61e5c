package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/rental"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, caller core.Caller, req rental.CreateCustomerRequest) (rental.Customer, error)
	GetCustomer(ctx context.Context, caller core.Caller, id uint64) (rental.Customer, error)
	SearchCustomer(ctx context.Context, caller core.Caller, name string) (rental.Customer, error)
	Reconcile(ctx context.Context, caller core.Caller, customerID uint64) (rental.Customer, error)
}

type CustomerApi struct {
	service CustomerService
}

func NewCustomerApi(service CustomerService) *CustomerApi {
	return &CustomerApi{service: service}
}

const (
	CtxKeyCustomerID CtxKey = "customerID"
)

func (a *CustomerApi) ConfigureRouter(r chi.Router) {
	r.Post("/", a.Create)
	r.Get("/search", a.Search)

	r.Route("/{customerID}", func(r chi.Router) {
		r.Use(a.CustomerCtx)
		r.Get("/", a.Get)
		r.With(AdminOnly).Post("/reconcile", a.Reconcile)
	})
}

func (a *CustomerApi) Create(w http.ResponseWriter, r *http.Request) {
	data := &CreateCustomerRequestDto{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, bindErr(err))
		return
	}

	c, err := a.service.CreateCustomer(r.Context(), CallerFrom(r.Context()), *data.CreateCustomerRequest)
	if err != nil {
		Render(w, r, ErrFrom(err))
		return
	}

	render.Status(r, http.StatusCreated)
	Render(w, r, NewCustomerResponse(c))
}

func (a *CustomerApi) Search(w http.ResponseWriter, r *http.Request) {
	c, err := a.service.SearchCustomer(r.Context(), CallerFrom(r.Context()), r.URL.Query().Get("name"))
	if err != nil {
		Render(w, r, ErrFrom(err))
		return
	}

	Render(w, r, NewCustomerResponse(c))
}

func (a *CustomerApi) CustomerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "customerID"), 10, 64)
		if err != nil {
			Render(w, r, ErrFrom(core.Validation("InvalidCustomerID", "customer id must be a positive number")))
			return
		}

		ctx := context.WithValue(r.Context(), CtxKeyCustomerID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *CustomerApi) Get(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(CtxKeyCustomerID).(uint64)

	c, err := a.service.GetCustomer(r.Context(), CallerFrom(r.Context()), id)
	if err != nil {
		Render(w, r, ErrFrom(err))
		return
	}

	Render(w, r, NewCustomerResponse(c))
}

func (a *CustomerApi) Reconcile(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(CtxKeyCustomerID).(uint64)

	c, err := a.service.Reconcile(r.Context(), CallerFrom(r.Context()), id)
	if err != nil {
		Render(w, r, ErrFrom(err))
		return
	}

	Render(w, r, NewCustomerResponse(c))
}
