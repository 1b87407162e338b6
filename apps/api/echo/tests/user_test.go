package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/fluentify/backend/apps/api/echo"
	"github.com/fluentify/backend/core/user"
	testutil "github.com/fluentify/backend/tests"
)

func Test_userApi_login(t *testing.T) {
	learner := testutil.CreateUser(t, usrRepo, "Idris", "userl-idris", "userl-idris@test.cd", "LePass123", []string{user.RoleLearner}, true)
	testutil.CreateUser(t, usrRepo, "Jo", "userl-jo", "userl-jo@test.cd", "LePass123", []string{user.RoleLearner}, false)

	failedData := marshallObj(t, httpErr{Error: "authentication failed"})
	tests := []httpTest{
		{
			name: "Empty body", body: nil,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown user", body: marshallObj(t, echoapi.LoginRequest{Username: "nobody", Password: "LePass123"}),
			wantCode: http.StatusBadRequest, wantData: failedData,
		},
		{
			name: "Wrong password", body: marshallObj(t, echoapi.LoginRequest{Username: learner.Username, Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: failedData,
		},
		{
			name: "Deactivated account", body: marshallObj(t, echoapi.LoginRequest{Username: "userl-jo", Password: "LePass123"}),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Login by username", body: marshallObj(t, echoapi.LoginRequest{Username: learner.Username, Password: "LePass123"}),
			wantCode: http.StatusOK,
		},
		{
			name: "Login by email", body: marshallObj(t, echoapi.LoginRequest{Username: learner.Email, Password: "LePass123"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	admin := testutil.CreateUser(t, usrRepo, "Root", "userq-root", "userq-root@test.cd", "", []string{user.RoleAdmin}, true)
	learner := testutil.CreateUser(t, usrRepo, "Kim", "userq-kim", "userq-kim@test.cd", "", []string{user.RoleLearner}, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "Admin required", token: getToken(t, learner), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{name: "Admin allowed", token: getToken(t, admin), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/users?search=userq-kim"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var users []user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if len(users) != 1 || users[0].ID != learner.ID {
					t.Errorf("users = %+v; want only %q", users, learner.Username)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
