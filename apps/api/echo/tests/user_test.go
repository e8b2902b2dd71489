package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mwalimux/elimisha/core/user"
)

func TestUserLogin(t *testing.T) {
	app, _ := setup(t)

	usr := createUser(t, "Awe Mdr", "aweMdr", "awe@test.cd", "LolC@t123", user.StudentRoles, true)
	deactivated := createUser(t, "Gone Guy", "goneGuy", "gone@test.cd", "LolC@t123", user.StudentRoles, false)

	tests := []httpTest{
		{
			name:     "empty payload",
			body:     []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoMap{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name:     "unknown user",
			body:     []byte(`{"username": "nobody", "password": "LolC@t123"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     []byte(`{"username": "aweMdr", "password": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     []byte(`{"username": "` + deactivated.Username + `", "password": "LolC@t123"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "login with username",
			body:     []byte(`{"username": "aweMdr", "password": "LolC@t123"}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "login with email",
			body:     []byte(`{"username": "` + usr.Email + `", "password": "LolC@t123"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				var resp struct {
					Token string `json:"token"`
				}
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserRegister(t *testing.T) {
	app, _ := setup(t)

	admin := createUser(t, "Admin", "admin1", "admin@test.cd", "LolC@t123", user.AdminRoles, true)
	student := createUser(t, "Student", "studentA", "student@test.cd", "LolC@t123", user.StudentRoles, true)

	payload := []byte(`{
		"name": "New Guy",
		"username": "newguy1",
		"email": "new@test.cd",
		"password": "LolC@t123",
		"password_confirm": "LolC@t123",
		"roles": ["student:"]
	}`)

	t.Run("anonymous is rejected", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/register", payload)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("student is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, student), payload)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin creates user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), payload)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var usr user.User
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
		assert.Equal(t, "newguy1", usr.Username)
		assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), payload)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserQueryAndDetail(t *testing.T) {
	app, _ := setup(t)

	admin := createUser(t, "Admin", "admin1", "admin@test.cd", "LolC@t123", user.AdminRoles, true)
	usr := createUser(t, "Awe Mdr", "aweMdr", "awe@test.cd", "LolC@t123", user.StudentRoles, true)
	other := createUser(t, "Other", "otherGuy", "other@test.cd", "LolC@t123", user.StudentRoles, true)

	t.Run("list is admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", getToken(t, usr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/users", getToken(t, admin))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var usrs []user.User
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usrs))
		assert.Len(t, usrs, 3)
	})

	t.Run("owner retrieves self", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+usr.ID, getToken(t, usr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+usr.ID, getToken(t, other))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin retrieves anyone", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+usr.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

type echoMap = map[string]interface{}
