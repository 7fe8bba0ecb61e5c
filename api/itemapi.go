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

type ItemService interface {
	CreateItem(ctx context.Context, caller core.Caller, item rental.Item) (rental.Item, error)
	GetItem(ctx context.Context, caller core.Caller, id uint64) (rental.Item, error)
	SearchItems(ctx context.Context, caller core.Caller, search rental.ItemSearch, limit, offset int) ([]rental.Item, error)
}

type ItemApi struct {
	service ItemService
}

func NewItemApi(service ItemService) *ItemApi {
	return &ItemApi{service: service}
}

const (
	CtxKeyItem CtxKey = "item"
)

func (a *ItemApi) ConfigureRouter(r chi.Router) {
	r.With(Paginate).Get("/", a.List)
	r.With(AdminOnly).Put("/", a.Create)

	r.Route("/{itemID}", func(r chi.Router) {
		r.Use(a.ItemCtx)
		r.Get("/", a.Get)
	})
}

func (a *ItemApi) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageFrom(r.Context())

	field, err := rental.ParseItemField(r.URL.Query().Get("searchBy"))
	if err != nil {
		Render(w, r, ErrFrom(core.Validation("InvalidSearchField", err.Error())))
		return
	}

	search := rental.ItemSearch{SearchBy: field, Search: r.URL.Query().Get("search")}
	items, err := a.service.SearchItems(r.Context(), CallerFrom(r.Context()), search, limit, offset)
	if err != nil {
		Render(w, r, ErrFrom(err))
		return
	}

	RenderList(w, r, NewItemListResponse(items))
}

func (a *ItemApi) Create(w http.ResponseWriter, r *http.Request) {
	data := &CreateItemRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, bindErr(err))
		return
	}

	item, err := a.service.CreateItem(r.Context(), CallerFrom(r.Context()), *data.Item)
	if err != nil {
		Render(w, r, ErrFrom(err))
		return
	}

	render.Status(r, http.StatusCreated)
	Render(w, r, &ItemResponse{Item: item})
}

// ItemCtx loads the item named in the path so every handler below it can use it.
func (a *ItemApi) ItemCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "itemID"), 10, 64)
		if err != nil {
			Render(w, r, ErrFrom(core.Validation("InvalidItemID", "item id must be a positive number")))
			return
		}

		item, err := a.service.GetItem(r.Context(), CallerFrom(r.Context()), id)
		if err != nil {
			Render(w, r, ErrFrom(err))
			return
		}

		ctx := context.WithValue(r.Context(), CtxKeyItem, item)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *ItemApi) Get(w http.ResponseWriter, r *http.Request) {
	item := r.Context().Value(CtxKeyItem).(rental.Item)
	Render(w, r, &ItemResponse{Item: item})
}

type ItemResponse struct {
	rental.Item
}

func (i *ItemResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewItemListResponse(items []rental.Item) []render.Renderer {
	list := make([]render.Renderer, 0, len(items))
	for _, item := range items {
		list = append(list, &ItemResponse{Item: item})
	}
	return list
}

type CreateItemRequest struct {
	*rental.Item

	// availability and demand are derived, not set by clients
	ProtectedAvailable      bool  `json:"available"`
	ProtectedRequestedCount int64 `json:"requestedCount"`
}

func (c *CreateItemRequest) Bind(_ *http.Request) error {
	if c.Item == nil || c.Title == "" {
		return core.Validation("TitleRequired", "title is required")
	}
	return nil
}
