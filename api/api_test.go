package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi"
	"github.com/sksmith/video-shoppe/api"
	"github.com/sksmith/video-shoppe/config"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/employee"
	"github.com/sksmith/video-shoppe/core/rental"
	"github.com/sksmith/video-shoppe/testutil"
)

var (
	clerk = core.Caller{Username: "clerk"}
	admin = core.Caller{Username: "admin", IsAdmin: true}
)

func TestMain(m *testing.M) {
	testutil.ConfigLogging()
	os.Exit(m.Run())
}

func TestCorsConfig(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{origin: "https://evilorigin.com", want: ""},
		{origin: "http://evilorigin.com", want: ""},
		{origin: "http://localhost:8080", want: "http://localhost:8080"},
		{origin: "http://localhost:3000", want: "http://localhost:3000"},
		{origin: "https://localhost:8080", want: "https://localhost:8080"},
		{origin: "http://evil.localhost.com", want: ""},
	}

	r, _, _ := getRouter()
	ts := httptest.NewServer(r)
	defer ts.Close()

	client := http.DefaultClient
	url := ts.URL + api.HealthPath

	for _, test := range tests {
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Add("Origin", test.origin)

		res, err := client.Do(req)
		if err != nil {
			t.Fatal(err)
		}

		got := res.Header.Get("Access-Control-Allow-Origin")
		if got != test.want {
			t.Errorf("failed cors test got=[%v] want=[%v]", got, test.want)
		}
	}
}

func TestHealth(t *testing.T) {
	r, _, _ := getRouter()
	ts := httptest.NewServer(r)
	defer ts.Close()

	res := testutil.Get(ts.URL+api.HealthPath, t)
	if res.StatusCode != http.StatusOK {
		t.Errorf("unexpected status code got=[%d] want=[%d]", res.StatusCode, http.StatusOK)
	}
}

func TestAuthenticate(t *testing.T) {
	r, rentalSvc, employeeSvc := getRouter()
	ts := httptest.NewServer(r)
	defer ts.Close()

	employeeSvc.LoginFunc = func(ctx context.Context, username, password string) (employee.Employee, error) {
		if username == "clerk" && password == "secret" {
			return employee.Employee{Username: "clerk"}, nil
		}
		return employee.Employee{}, core.Unauthorized("InvalidCredentials", "invalid username or password")
	}

	var gotCaller core.Caller
	rentalSvc.ListRentalsFunc = func(ctx context.Context, caller core.Caller, opts rental.ListRentalsOptions, limit, offset int) ([]rental.RentalView, error) {
		gotCaller = caller
		return []rental.RentalView{}, nil
	}

	url := ts.URL + api.ApiPath + api.RentalPath

	res := testutil.Get(url, t)
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("no credentials got=[%d] want=[%d]", res.StatusCode, http.StatusUnauthorized)
	}
	if res.Header.Get("WWW-Authenticate") == "" {
		t.Errorf("expected a basic auth challenge")
	}

	res = testutil.Get(url, t, testutil.RequestOptions{Username: "clerk", Password: "secret"})
	if res.StatusCode != http.StatusOK {
		t.Errorf("valid credentials got=[%d] want=[%d]", res.StatusCode, http.StatusOK)
	}
	if gotCaller != clerk {
		t.Errorf("unexpected caller got=[%+v] want=[%+v]", gotCaller, clerk)
	}

	cfg := config.LoadDefaults()
	for i := 0; i < cfg.Http.AuthFailures.Value; i++ {
		res = testutil.Get(url, t, testutil.RequestOptions{Username: "clerk", Password: "guess"})
		if res.StatusCode != http.StatusUnauthorized {
			t.Errorf("failed login %d got=[%d] want=[%d]", i, res.StatusCode, http.StatusUnauthorized)
		}
	}

	res = testutil.Get(url, t, testutil.RequestOptions{Username: "clerk", Password: "secret"})
	if res.StatusCode != http.StatusTooManyRequests {
		t.Errorf("throttled login got=[%d] want=[%d]", res.StatusCode, http.StatusTooManyRequests)
	}

	res = testutil.Get(url, t, testutil.RequestOptions{Username: "someoneelse", Password: "guess"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("other usernames are not throttled got=[%d] want=[%d]", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestErrFrom(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantCategory string
		wantCode     string
	}{
		{name: "validation", err: core.Validation("DueDateRequired", "due"), wantStatus: http.StatusBadRequest, wantCategory: "validation", wantCode: "DueDateRequired"},
		{name: "not found", err: core.NotFound("CustomerNotFound", "nope"), wantStatus: http.StatusNotFound, wantCategory: "not_found", wantCode: "CustomerNotFound"},
		{name: "conflict", err: core.Conflict("AlreadyReturned", "again"), wantStatus: http.StatusConflict, wantCategory: "conflict", wantCode: "AlreadyReturned"},
		{name: "auth", err: core.Unauthorized("Forbidden", "no"), wantStatus: http.StatusForbidden, wantCategory: "auth", wantCode: "Forbidden"},
		{
			name:         "consistency",
			err:          core.Consistency("CommitOutcomeUnknown", "maybe", map[string]interface{}{"rentalId": 1}, errors.New("reset")),
			wantStatus:   http.StatusInternalServerError,
			wantCategory: "consistency",
			wantCode:     "CommitOutcomeUnknown",
		},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCategory: "internal"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := api.ErrFrom(test.err)
			if got.HTTPStatusCode != test.wantStatus {
				t.Errorf("status got=[%d] want=[%d]", got.HTTPStatusCode, test.wantStatus)
			}
			if got.Category != test.wantCategory {
				t.Errorf("category got=[%s] want=[%s]", got.Category, test.wantCategory)
			}
			if got.AppCode != test.wantCode {
				t.Errorf("code got=[%s] want=[%s]", got.AppCode, test.wantCode)
			}
		})
	}
}

func getRouter() (chi.Router, *rental.MockRentalService, *employee.MockEmployeeService) {
	cfg := config.LoadDefaults()
	rentalSvc := rental.NewMockRentalService()
	employeeSvc := employee.NewMockEmployeeService()
	return api.ConfigureRouter(cfg, rentalSvc, &employeeSvc), rentalSvc, &employeeSvc
}

// asCaller stands in for Authenticate when an api is served on its own.
func asCaller(c core.Caller) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), api.CtxKeyCaller, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newServer(c core.Caller, configure func(r chi.Router)) *httptest.Server {
	r := chi.NewRouter()
	r.Use(asCaller(c))
	configure(r)
	return httptest.NewServer(r)
}
