package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/sksmith/video-shoppe/api"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/employee"
	"github.com/sksmith/video-shoppe/testutil"
)

func TestCreateEmployee(t *testing.T) {
	tests := []struct {
		name        string
		caller      core.Caller
		request     map[string]interface{}
		serviceErr  error
		wantStatus  int
		wantRequest *employee.CreateEmployeeRequest
	}{
		{
			name:        "admin creates clerk",
			caller:      admin,
			request:     map[string]interface{}{"username": "fox", "password": "trustno1"},
			wantStatus:  http.StatusCreated,
			wantRequest: &employee.CreateEmployeeRequest{Username: "fox", PlainTextPassword: "trustno1"},
		},
		{
			name:       "clerk may not create employees",
			caller:     clerk,
			request:    map[string]interface{}{"username": "fox", "password": "trustno1"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "password is required",
			caller:     admin,
			request:    map[string]interface{}{"username": "fox"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "duplicate username",
			caller:      admin,
			request:     map[string]interface{}{"username": "fox", "password": "trustno1"},
			serviceErr:  core.Conflict("EmployeeExists", "employee fox already exists"),
			wantStatus:  http.StatusConflict,
			wantRequest: &employee.CreateEmployeeRequest{Username: "fox", PlainTextPassword: "trustno1"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mockSvc := employee.NewMockEmployeeService()
			var gotRequest *employee.CreateEmployeeRequest
			mockSvc.CreateFunc = func(ctx context.Context, caller core.Caller, req employee.CreateEmployeeRequest) (employee.Employee, error) {
				gotRequest = &req
				return employee.Employee{Username: req.Username, IsAdmin: req.IsAdmin}, test.serviceErr
			}

			ts := newServer(test.caller, api.NewEmployeeApi(&mockSvc).ConfigureRouter)
			defer ts.Close()

			res := testutil.Post(ts.URL, test.request, t)
			if res.StatusCode != test.wantStatus {
				t.Errorf("status code got=[%d] want=[%d]", res.StatusCode, test.wantStatus)
			}

			if test.wantRequest == nil {
				if gotRequest != nil {
					t.Errorf("service should not have been called")
				}
				return
			}
			if gotRequest == nil || *gotRequest != *test.wantRequest {
				t.Errorf("request got=%+v want=%+v", gotRequest, test.wantRequest)
			}
		})
	}
}

func TestDeleteEmployee(t *testing.T) {
	mockSvc := employee.NewMockEmployeeService()
	var gotUsername string
	mockSvc.DeleteFunc = func(ctx context.Context, caller core.Caller, username string) error {
		gotUsername = username
		return nil
	}

	ts := newServer(admin, api.NewEmployeeApi(&mockSvc).ConfigureRouter)
	defer ts.Close()

	res := testutil.SendRequest(http.MethodDelete, ts.URL+"/fox", nil, t)
	if res.StatusCode != http.StatusNoContent {
		t.Errorf("status code got=[%d] want=[%d]", res.StatusCode, http.StatusNoContent)
	}
	if gotUsername != "fox" {
		t.Errorf("deleted username got=[%s] want=[fox]", gotUsername)
	}
}
