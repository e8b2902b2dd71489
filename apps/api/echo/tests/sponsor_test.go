package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mwalimux/elimisha/core/sponsor"
	"github.com/mwalimux/elimisha/core/user"
)

func TestSponsorAccountLifecycle(t *testing.T) {
	app, _ := setup(t)

	spnsr := createUser(t, "Sponsor", "sponsorA", "sponsor@test.cd", "LolC@t123", user.SponsorRoles, true)
	other := createUser(t, "Other Sponsor", "sponsorB", "other@test.cd", "LolC@t123", user.SponsorRoles, true)
	student := createUser(t, "Student", "studentA", "student@test.cd", "LolC@t123", user.StudentRoles, true)

	var acct sponsor.Account

	t.Run("anonymous is rejected", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/sponsor/accounts")
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("student cannot open an account", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts", getToken(t, student), []byte("{}"))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("sponsor opens an account", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts", getToken(t, spnsr), []byte("{}"))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
		assert.Equal(t, spnsr.ID, acct.SponsorID)
		assert.True(t, acct.Balance.IsZero())
	})

	t.Run("one account per sponsor", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts", getToken(t, spnsr), []byte("{}"))
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: sponsor.ErrAccountExists.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("add funds", func(t *testing.T) {
		body := []byte(`{"amount": "100", "note": "initial deposit"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts/"+acct.ID+"/add-funds", getToken(t, spnsr), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
		assert.Equal(t, "100", acct.Balance.String())
	})

	t.Run("amounts are strings with at most 2 decimal places", func(t *testing.T) {
		for _, amount := range []string{"-5", "0", "1.234", "lol"} {
			body := []byte(`{"amount": "` + amount + `"}`)
			req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts/"+acct.ID+"/add-funds", getToken(t, spnsr), body)
			app.ServeHTTP(rec, req)
			tt := httpTest{
				wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, httpErr{Error: sponsor.ErrInvalidAmount.Error()}),
			}
			checkCodeAndData(t, tt, rec)
		}
	})

	t.Run("deduct funds", func(t *testing.T) {
		body := []byte(`{"amount": "30.50"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts/"+acct.ID+"/deduct-funds", getToken(t, spnsr), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
		assert.Equal(t, "69.5", acct.Balance.String())
	})

	t.Run("overdraw is rejected", func(t *testing.T) {
		body := []byte(`{"amount": "1000"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts/"+acct.ID+"/deduct-funds", getToken(t, spnsr), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: sponsor.ErrInsufficientFunds.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("another sponsor cannot touch the account", func(t *testing.T) {
		body := []byte(`{"amount": "10"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts/"+acct.ID+"/add-funds", getToken(t, other), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/sponsor/accounts/"+acct.ID+"/transactions", getToken(t, other))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ledger lists newest first", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/sponsor/accounts/"+acct.ID+"/transactions", getToken(t, spnsr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var entries []sponsor.Entry
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		assert.Len(t, entries, 2)
		assert.Equal(t, sponsor.KindDeduct, entries[0].Kind)
		assert.Equal(t, sponsor.KindAdd, entries[1].Kind)
	})

	t.Run("create sponsorship", func(t *testing.T) {
		body := []byte(`{"student_id": "` + student.ID + `", "amount": "40"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts/"+acct.ID+"/sponsorships", getToken(t, spnsr), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var sp sponsor.Sponsorship
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sp))
		assert.Equal(t, student.ID, sp.StudentID)
		assert.Empty(t, sp.CourseID)
	})

	t.Run("unknown student is rejected", func(t *testing.T) {
		body := []byte(`{"student_id": "nobody", "amount": "5"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts/"+acct.ID+"/sponsorships", getToken(t, spnsr), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoMap{"student_id": "student not found"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("underfunded sponsorship is rejected", func(t *testing.T) {
		body := []byte(`{"student_id": "` + student.ID + `", "amount": "500"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts/"+acct.ID+"/sponsorships", getToken(t, spnsr), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: sponsor.ErrInsufficientFunds.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("dashboard", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/sponsor/accounts/"+acct.ID+"/dashboard", getToken(t, spnsr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var dash sponsor.Dashboard
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
		assert.Equal(t, spnsr.ID, dash.SponsorID)
		assert.Equal(t, "29.5", dash.Balance.String())
		assert.Equal(t, "40", dash.TotalSponsoredAmount.String())
		assert.Equal(t, 1, dash.TotalStudentsSponsored)
	})

	t.Run("admin sees all accounts, sponsor only their own", func(t *testing.T) {
		admin := createUser(t, "Admin", "admin1", "admin@test.cd", "LolC@t123", user.AdminRoles, true)

		// second account
		req, rec := newAuthRequest(http.MethodPost, "/v1/sponsor/accounts", getToken(t, other), []byte("{}"))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/sponsor/accounts", getToken(t, admin))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		var accts []sponsor.Account
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accts))
		assert.Len(t, accts, 2)

		req, rec = newAuthRequest(http.MethodGet, "/v1/sponsor/accounts", getToken(t, spnsr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accts))
		assert.Len(t, accts, 1)
		assert.Equal(t, acct.ID, accts[0].ID)
	})
}
