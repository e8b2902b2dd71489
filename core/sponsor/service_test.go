package sponsor_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mwalimux/elimisha/core/course"
	"github.com/mwalimux/elimisha/core/enroll"
	"github.com/mwalimux/elimisha/core/sponsor"
	dummydb "github.com/mwalimux/elimisha/storage/database/dummy"
)

func setup(t *testing.T) (sponsor.ServiceInterface, *dummydb.DB) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	return sponsor.NewService(dummydb.NewSponsorRepository(db)), db
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "integer", in: "100", want: "100"},
		{name: "two decimal places", in: "49.99", want: "49.99"},
		{name: "leading space", in: "  25.50", want: "25.5"},
		{name: "zero", in: "0", wantErr: sponsor.ErrInvalidAmount},
		{name: "negative", in: "-10", wantErr: sponsor.ErrInvalidAmount},
		{name: "three decimal places", in: "1.234", wantErr: sponsor.ErrInvalidAmount},
		{name: "not a number", in: "lol", wantErr: sponsor.ErrInvalidAmount},
		{name: "empty", in: "", wantErr: sponsor.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sponsor.ParseAmount(tt.in)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, got.Equal(amount(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestService_CreateAccount(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, err := svc.CreateAccount(ctx, "sponsor1")
	assert.NoError(t, err)
	assert.NotEmpty(t, acct.ID)
	assert.True(t, acct.Balance.IsZero())

	// one account per sponsor
	_, err = svc.CreateAccount(ctx, "sponsor1")
	assert.Equal(t, sponsor.ErrAccountExists, err)

	got, err := svc.GetAccountBySponsor(ctx, "sponsor1")
	assert.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)

	_, err = svc.GetAccountBySponsor(ctx, "nobody")
	assert.Equal(t, sponsor.ErrNotFound, err)
}

func TestService_AddDeductFunds(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, err := svc.CreateAccount(ctx, "sponsor1")
	assert.NoError(t, err)

	acct, err = svc.AddFunds(ctx, acct.ID, amount("100"), "initial deposit")
	assert.NoError(t, err)
	assert.True(t, acct.Balance.Equal(amount("100")))

	acct, err = svc.DeductFunds(ctx, acct.ID, amount("30.50"), "")
	assert.NoError(t, err)
	assert.True(t, acct.Balance.Equal(amount("69.50")))

	// overdraw leaves the account and ledger untouched
	_, err = svc.DeductFunds(ctx, acct.ID, amount("1000"), "")
	assert.Equal(t, sponsor.ErrInsufficientFunds, err)

	acct, err = svc.GetAccount(ctx, acct.ID)
	assert.NoError(t, err)
	assert.True(t, acct.Balance.Equal(amount("69.50")))

	entries, err := svc.ListTransactions(ctx, acct.ID)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)

	// newest first; each entry carries the balance after it applied
	assert.Equal(t, sponsor.KindDeduct, entries[0].Kind)
	assert.True(t, entries[0].BalanceAfter.Equal(amount("69.50")))
	assert.Equal(t, sponsor.KindAdd, entries[1].Kind)
	assert.True(t, entries[1].BalanceAfter.Equal(amount("100")))

	// invalid amounts never reach the ledger
	_, err = svc.AddFunds(ctx, acct.ID, amount("-5"), "")
	assert.Equal(t, sponsor.ErrInvalidAmount, err)
	_, err = svc.DeductFunds(ctx, acct.ID, amount("0.001"), "")
	assert.Equal(t, sponsor.ErrInvalidAmount, err)

	_, err = svc.AddFunds(ctx, "nope", amount("5"), "")
	assert.Equal(t, sponsor.ErrNotFound, err)
}

func TestService_LedgerReconciles(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, err := svc.CreateAccount(ctx, "sponsor1")
	assert.NoError(t, err)

	adds := []string{"100", "49.99", "0.01"}
	deducts := []string{"20", "30"}
	for _, a := range adds {
		_, err = svc.AddFunds(ctx, acct.ID, amount(a), "")
		assert.NoError(t, err)
	}
	for _, d := range deducts {
		_, err = svc.DeductFunds(ctx, acct.ID, amount(d), "")
		assert.NoError(t, err)
	}

	acct, err = svc.GetAccount(ctx, acct.ID)
	assert.NoError(t, err)

	// balance == sum(ADD) - sum(DEDUCT) at all times
	entries, err := svc.ListTransactions(ctx, acct.ID)
	assert.NoError(t, err)
	total := decimal.Zero
	for _, e := range entries {
		switch e.Kind {
		case sponsor.KindAdd:
			total = total.Add(e.Amount)
		case sponsor.KindDeduct:
			total = total.Sub(e.Amount)
		}
	}
	assert.True(t, acct.Balance.Equal(total), "balance %s does not reconcile with ledger total %s", acct.Balance, total)
	assert.True(t, acct.Balance.Equal(amount("100")))
}

func TestService_ConcurrentDeducts(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, err := svc.CreateAccount(ctx, "sponsor1")
	assert.NoError(t, err)
	_, err = svc.AddFunds(ctx, acct.ID, amount("50"), "")
	assert.NoError(t, err)

	// 10 concurrent deducts of 10 against a balance of 50: exactly 5
	// may succeed, the rest fail with ErrInsufficientFunds
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DeductFunds(ctx, acct.ID, amount("10"), "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, failed int
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, sponsor.ErrInsufficientFunds, err)
			failed++
		}
	}
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, failed)

	acct, err = svc.GetAccount(ctx, acct.ID)
	assert.NoError(t, err)
	assert.True(t, acct.Balance.IsZero(), "final balance %s, want 0", acct.Balance)

	entries, err := svc.ListTransactions(ctx, acct.ID)
	assert.NoError(t, err)
	assert.Len(t, entries, 6) // 1 ADD + 5 DEDUCTs
}

func TestService_CreateSponsorship(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, err := svc.CreateAccount(ctx, "sponsor1")
	assert.NoError(t, err)
	_, err = svc.AddFunds(ctx, acct.ID, amount("100"), "")
	assert.NoError(t, err)

	sp, err := svc.CreateSponsorship(ctx, acct.ID, "student1", "course1", amount("40"))
	assert.NoError(t, err)
	assert.NotEmpty(t, sp.ID)
	assert.Equal(t, acct.ID, sp.AccountID)

	acct, err = svc.GetAccount(ctx, acct.ID)
	assert.NoError(t, err)
	assert.True(t, acct.Balance.Equal(amount("60")))

	// the deduction shows up in the ledger
	entries, err := svc.ListTransactions(ctx, acct.ID)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, sponsor.KindDeduct, entries[0].Kind)
	assert.True(t, entries[0].Amount.Equal(amount("40")))

	// an underfunded sponsorship creates nothing: no record, no entry,
	// no balance change
	_, err = svc.CreateSponsorship(ctx, acct.ID, "student2", "", amount("500"))
	assert.Equal(t, sponsor.ErrInsufficientFunds, err)

	acct, _ = svc.GetAccount(ctx, acct.ID)
	assert.True(t, acct.Balance.Equal(amount("60")))
	sps, err := svc.QuerySponsorships(ctx, acct.ID, sponsor.SponsorshipFilter{})
	assert.NoError(t, err)
	assert.Len(t, sps, 1)
	entries, _ = svc.ListTransactions(ctx, acct.ID)
	assert.Len(t, entries, 2)
}

func TestService_HasSponsorship(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, err := svc.CreateAccount(ctx, "sponsor1")
	assert.NoError(t, err)
	_, err = svc.AddFunds(ctx, acct.ID, amount("100"), "")
	assert.NoError(t, err)

	_, err = svc.CreateSponsorship(ctx, acct.ID, "scoped", "course1", amount("10"))
	assert.NoError(t, err)
	_, err = svc.CreateSponsorship(ctx, acct.ID, "general", "", amount("10"))
	assert.NoError(t, err)

	tests := []struct {
		name      string
		studentID string
		courseID  string
		want      bool
	}{
		{name: "scoped student, covered course", studentID: "scoped", courseID: "course1", want: true},
		{name: "scoped student, other course", studentID: "scoped", courseID: "course2", want: false},
		{name: "unscoped sponsorship covers any course", studentID: "general", courseID: "course9", want: true},
		{name: "unknown student", studentID: "nobody", courseID: "course1", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.HasSponsorship(ctx, tt.studentID, tt.courseID)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_QuerySponsorships_filter(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, _ := svc.CreateAccount(ctx, "sponsor1")
	_, err := svc.AddFunds(ctx, acct.ID, amount("100"), "")
	assert.NoError(t, err)

	_, err = svc.CreateSponsorship(ctx, acct.ID, "student1", "course1", amount("10"))
	assert.NoError(t, err)
	_, err = svc.CreateSponsorship(ctx, acct.ID, "student1", "course2", amount("10"))
	assert.NoError(t, err)
	_, err = svc.CreateSponsorship(ctx, acct.ID, "student2", "course1", amount("10"))
	assert.NoError(t, err)

	sps, err := svc.QuerySponsorships(ctx, acct.ID, sponsor.SponsorshipFilter{StudentID: "student1"})
	assert.NoError(t, err)
	assert.Len(t, sps, 2)

	sps, err = svc.QuerySponsorships(ctx, acct.ID, sponsor.SponsorshipFilter{CourseID: "course1"})
	assert.NoError(t, err)
	assert.Len(t, sps, 2)

	sps, err = svc.QuerySponsorships(ctx, acct.ID, sponsor.SponsorshipFilter{StudentID: "student2", CourseID: "course1"})
	assert.NoError(t, err)
	assert.Len(t, sps, 1)
}

func TestService_Dashboard(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	courseRepo := dummydb.NewCourseRepository(db)
	enrollRepo := dummydb.NewEnrollRepository(db)

	crs1, err := courseRepo.CreateCourse(ctx, course.Course{Name: "Go 101", Difficulty: "beginner"})
	assert.NoError(t, err)
	crs2, err := courseRepo.CreateCourse(ctx, course.Course{Name: "Distributed Systems", Difficulty: "advanced"})
	assert.NoError(t, err)

	enr1, err := enrollRepo.CreateEnrollment(ctx, enroll.Enrollment{StudentID: "student1", CourseID: crs1.ID})
	assert.NoError(t, err)
	_, err = enrollRepo.UpdateEnrollmentProgress(ctx, enr1.ID, amount("50"))
	assert.NoError(t, err)
	enr2, err := enrollRepo.CreateEnrollment(ctx, enroll.Enrollment{StudentID: "student2", CourseID: crs2.ID})
	assert.NoError(t, err)
	_, err = enrollRepo.UpdateEnrollmentProgress(ctx, enr2.ID, amount("30"))
	assert.NoError(t, err)

	acct, err := svc.CreateAccount(ctx, "sponsor1")
	assert.NoError(t, err)
	_, err = svc.AddFunds(ctx, acct.ID, amount("100"), "")
	assert.NoError(t, err)

	_, err = svc.CreateSponsorship(ctx, acct.ID, "student1", crs1.ID, amount("40"))
	assert.NoError(t, err)
	_, err = svc.CreateSponsorship(ctx, acct.ID, "student2", "", amount("20"))
	assert.NoError(t, err)

	dash, err := svc.Dashboard(ctx, acct.ID)
	assert.NoError(t, err)

	assert.Equal(t, "sponsor1", dash.SponsorID)
	assert.True(t, dash.Balance.Equal(amount("40")))
	assert.True(t, dash.TotalFundsAdded.Equal(amount("100")))
	assert.True(t, dash.TotalFundsDeducted.Equal(amount("60")))
	assert.True(t, dash.TotalSponsoredAmount.Equal(amount("60")))
	assert.Equal(t, 2, dash.TotalStudentsSponsored)
	assert.True(t, dash.AverageProgress.Equal(amount("40")), "avg progress %s, want 40", dash.AverageProgress)
	assert.Len(t, dash.Students, 2)

	// sponsored course names come through the enrollment snapshots
	for _, st := range dash.Students {
		assert.NotEmpty(t, st.Enrollments)
		assert.NotEmpty(t, st.Enrollments[0].CourseName)
	}
}
