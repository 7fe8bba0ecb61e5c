// Package employee holds the store staff who sign in to run checkouts and returns.
package employee

import "time"

type CreateEmployeeRequest struct {
	Username          string `json:"username,omitempty"`
	IsAdmin           bool   `json:"isAdmin,omitempty"`
	PlainTextPassword string `json:"-"`
}

type Employee struct {
	Username       string
	HashedPassword string
	IsAdmin        bool
	Created        time.Time
}
