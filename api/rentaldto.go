package api

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/rental"
)

type CheckoutRequestDto struct {
	CustomerID uint64 `json:"customerId"`
	ItemID     uint64 `json:"itemId"`
	Kind       string `json:"kind"`
	DueDate    string `json:"dueDate,omitempty"`

	request rental.CheckoutRequest
}

func (c *CheckoutRequestDto) Bind(_ *http.Request) error {
	if c.CustomerID == 0 || c.ItemID == 0 {
		return core.Validation("MissingFields", "customerId and itemId are required")
	}

	kind, err := rental.ParseKind(c.Kind)
	if err != nil {
		return core.Validation("InvalidKind", err.Error())
	}

	c.request = rental.CheckoutRequest{CustomerID: c.CustomerID, ItemID: c.ItemID, Kind: kind}
	if c.DueDate != "" {
		due, err := rental.ParseDate(c.DueDate)
		if err != nil {
			return core.Validation("InvalidDueDate", err.Error())
		}
		c.request.DueDate = &due
	}

	return nil
}

type CheckoutResponse struct {
	rental.CheckoutResult
}

func (c *CheckoutResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

type RentalResponse struct {
	rental.RentalView
}

func (rr *RentalResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewRentalListResponse(rentals []rental.RentalView) []render.Renderer {
	list := make([]render.Renderer, 0, len(rentals))
	for _, v := range rentals {
		list = append(list, &RentalResponse{RentalView: v})
	}
	return list
}
