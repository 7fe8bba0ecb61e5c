package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/rental"
)

type CreateCustomerRequestDto struct {
	*rental.CreateCustomerRequest
	Birthdate string `json:"birthdate,omitempty"`
}

func (c *CreateCustomerRequestDto) Bind(_ *http.Request) error {
	if c.CreateCustomerRequest == nil {
		return errors.New("missing required customer fields")
	}

	c.CreateCustomerRequest.Birthdate = nil
	if c.Birthdate != "" {
		b, err := rental.ParseDate(c.Birthdate)
		if err != nil {
			return core.Validation("InvalidBirthdate", err.Error())
		}
		c.CreateCustomerRequest.Birthdate = &b
	}

	return nil
}

// CustomerResponse never carries the card's security code and only shows the last four digits of its number.
type CustomerResponse struct {
	rental.Customer
	CreditCardNumber string `json:"creditCardNumber"`
	CreditCardCVC    string `json:"creditCardCvc,omitempty"`
}

func NewCustomerResponse(c rental.Customer) *CustomerResponse {
	return &CustomerResponse{Customer: c, CreditCardNumber: maskCard(c.CreditCardNumber)}
}

func (c *CustomerResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func maskCard(number string) string {
	number = strings.ReplaceAll(strings.TrimSpace(number), " ", "")
	if len(number) <= 4 {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
