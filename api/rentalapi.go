package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/rental"
)

var json = jsoniter.ConfigFastest

type RentalService interface {
	Checkout(ctx context.Context, caller core.Caller, req rental.CheckoutRequest) (rental.CheckoutResult, error)
	Return(ctx context.Context, caller core.Caller, rentalID uint64) (rental.Rental, error)
	GetRental(ctx context.Context, caller core.Caller, id uint64) (rental.RentalView, error)
	ListRentals(ctx context.Context, caller core.Caller, opts rental.ListRentalsOptions, limit, offset int) ([]rental.RentalView, error)

	SubscribeRentals(ch chan<- rental.Event) (id rental.SubscriptionID)
	UnsubscribeRentals(id rental.SubscriptionID)
}

type RentalApi struct {
	service RentalService
}

func NewRentalApi(service RentalService) *RentalApi {
	return &RentalApi{service: service}
}

const (
	CtxKeyRentalID CtxKey = "rentalID"
)

func (a *RentalApi) ConfigureCheckoutRouter(r chi.Router) {
	r.Post("/", a.Checkout)
}

func (a *RentalApi) ConfigureRouter(r chi.Router) {
	r.HandleFunc("/subscribe", a.Subscribe)

	r.Route("/", func(r chi.Router) {
		r.With(Paginate).Get("/", a.List)

		r.Route("/{rentalID}", func(r chi.Router) {
			r.Use(a.RentalCtx)
			r.Get("/", a.Get)
			r.Put("/return", a.Return)
		})
	})
}

// Subscribe streams every checkout, sale and return to the client over a websocket connection.
//
// Subscribers only hear about changes made through this instance.
func (a *RentalApi) Subscribe(w http.ResponseWriter, r *http.Request) {
	log.Info().Str("caller", CallerFrom(r.Context()).Username).Msg("client requesting rental subscription")

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Err(err).Msg("failed to establish rental subscription connection")
		Render(w, r, ErrInternalServer)
		return
	}
	go func() {
		defer conn.Close()

		ch := make(chan rental.Event, 8)

		id := a.service.SubscribeRentals(ch)
		defer func() {
			a.service.UnsubscribeRentals(id)
		}()

		for evt := range ch {
			body, err := json.Marshal(evt)
			if err != nil {
				log.Err(err).Interface("clientId", id).Msg("failed to marshal rental event")
				continue
			}

			log.Debug().Interface("clientId", id).Str("type", string(evt.Type)).Msg("sending rental event to client")
			err = wsutil.WriteServerText(conn, body)
			if err != nil {
				log.Err(err).Interface("clientId", id).Msg("failed to write server message, disconnecting client")
				return
			}
		}
	}()
}

func (a *RentalApi) Checkout(w http.ResponseWriter, r *http.Request) {
	data := &CheckoutRequestDto{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, bindErr(err))
		return
	}

	res, err := a.service.Checkout(r.Context(), CallerFrom(r.Context()), data.request)
	if err != nil {
		Render(w, r, ErrFrom(err))
		return
	}

	render.Status(r, http.StatusCreated)
	Render(w, r, &CheckoutResponse{CheckoutResult: res})
}

func (a *RentalApi) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageFrom(r.Context())
	q := r.URL.Query()

	status, err := rental.ParseStatusFilter(q.Get("status"))
	if err != nil {
		Render(w, r, ErrFrom(core.Validation("InvalidStatus", err.Error())))
		return
	}
	searchBy, err := rental.ParseSearchField(q.Get("searchBy"))
	if err != nil {
		Render(w, r, ErrFrom(core.Validation("InvalidSearchField", err.Error())))
		return
	}

	opts := rental.ListRentalsOptions{Status: status, SearchBy: searchBy, Search: q.Get("search")}
	rentals, err := a.service.ListRentals(r.Context(), CallerFrom(r.Context()), opts, limit, offset)
	if err != nil {
		Render(w, r, ErrFrom(err))
		return
	}

	RenderList(w, r, NewRentalListResponse(rentals))
}

func (a *RentalApi) RentalCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "rentalID"), 10, 64)
		if err != nil {
			Render(w, r, ErrFrom(core.Validation("InvalidRentalID", "rental id must be a positive number")))
			return
		}

		ctx := context.WithValue(r.Context(), CtxKeyRentalID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *RentalApi) Get(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(CtxKeyRentalID).(uint64)

	v, err := a.service.GetRental(r.Context(), CallerFrom(r.Context()), id)
	if err != nil {
		Render(w, r, ErrFrom(err))
		return
	}

	Render(w, r, &RentalResponse{RentalView: v})
}

func (a *RentalApi) Return(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(CtxKeyRentalID).(uint64)

	ret, err := a.service.Return(r.Context(), CallerFrom(r.Context()), id)
	if err != nil {
		Render(w, r, ErrFrom(err))
		return
	}

	Render(w, r, &RentalResponse{RentalView: rental.RentalView{Rental: ret, EffectiveStatus: ret.Status}})
}

// bindErr keeps the code of domain validation errors raised while binding a request body.
func bindErr(err error) render.Renderer {
	if _, ok := core.AsError(err); ok {
		return ErrFrom(err)
	}
	return ErrInvalidRequest(err)
}
