package sponsor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// errors
	ErrNotFound          = errors.New("sponsor account not found")
	ErrAccountExists     = errors.New("a fund account already exists for this sponsor")
	ErrInvalidAmount     = errors.New("amount must be a positive number with at most 2 decimal places")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type (
	// Mutation is the outcome of a balance change: the entry to append
	// and, for sponsorships, the record to insert alongside it.
	Mutation struct {
		Entry       Entry
		Sponsorship *Sponsorship
	}

	Repository interface {
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountBySponsorID(ctx context.Context, sponsorID string) (Account, error)
		QueryAllAccounts(ctx context.Context) ([]Account, error)
		CountAccounts(ctx context.Context) (int, error)

		// ApplyMutation runs apply with the account locked against
		// concurrent mutation, then persists the new balance, the entry
		// and the optional sponsorship in a single transaction. When
		// apply returns an error nothing is persisted. The returned
		// Mutation carries the assigned record IDs.
		ApplyMutation(ctx context.Context, accountID string, apply func(acct *Account) (Mutation, error)) (Account, Mutation, error)

		QueryEntries(ctx context.Context, accountID string) ([]Entry, error)
		SumEntries(ctx context.Context, accountID, kind string) (decimal.Decimal, error)

		QuerySponsorships(ctx context.Context, accountID string, filter SponsorshipFilter) ([]Sponsorship, error)
		HasSponsorship(ctx context.Context, studentID, courseID string) (bool, error)
		SumSponsorships(ctx context.Context, accountID string) (decimal.Decimal, error)

		// QueryStudentProgress reads the sponsored student's enrollments,
		// optionally narrowed to the sponsored course. Enrollment data is
		// owned by the enrollment subsystem; the repository only reads it.
		QueryStudentProgress(ctx context.Context, studentID, courseID string) ([]EnrollmentProgress, error)
	}

	ServiceInterface interface {
		CreateAccount(ctx context.Context, sponsorID string) (Account, error)
		GetAccount(ctx context.Context, id string) (Account, error)
		GetAccountBySponsor(ctx context.Context, sponsorID string) (Account, error)
		QueryAllAccounts(ctx context.Context) ([]Account, error)
		AddFunds(ctx context.Context, accountID string, amount decimal.Decimal, note string) (Account, error)
		DeductFunds(ctx context.Context, accountID string, amount decimal.Decimal, note string) (Account, error)
		CreateSponsorship(ctx context.Context, accountID string, studentID, courseID string, amount decimal.Decimal) (Sponsorship, error)
		ListTransactions(ctx context.Context, accountID string) ([]Entry, error)
		QuerySponsorships(ctx context.Context, accountID string, filter SponsorshipFilter) ([]Sponsorship, error)
		HasSponsorship(ctx context.Context, studentID, courseID string) (bool, error)
		Dashboard(ctx context.Context, accountID string) (Dashboard, error)
		CountAccounts(ctx context.Context) (int, error)
		TotalSponsoredAmount(ctx context.Context) (decimal.Decimal, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

// CreateAccount opens a fund account for a sponsor. Duplicate creation
// for the same sponsor is rejected with ErrAccountExists.
func (svc *service) CreateAccount(ctx context.Context, sponsorID string) (Account, error) {
	if _, err := svc.repo.GetAccountBySponsorID(ctx, sponsorID); err == nil {
		return Account{}, ErrAccountExists
	} else if err != ErrNotFound {
		return Account{}, err
	}
	acct := Account{
		SponsorID: sponsorID,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateAccount(ctx, acct)
}

func (svc *service) GetAccount(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *service) GetAccountBySponsor(ctx context.Context, sponsorID string) (Account, error) {
	return svc.repo.GetAccountBySponsorID(ctx, sponsorID)
}

func (svc *service) QueryAllAccounts(ctx context.Context) ([]Account, error) {
	return svc.repo.QueryAllAccounts(ctx)
}

// mutate is the single atomic ledger primitive: validate the amount,
// then update the balance and append the matching entry (plus an
// optional sponsorship) as one transaction. Every failure leaves the
// account and ledger untouched.
func (svc *service) mutate(ctx context.Context, accountID, kind string, amount decimal.Decimal, description string, sp *Sponsorship) (Account, Mutation, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return Account{}, Mutation{}, ErrInvalidAmount
	}

	return svc.repo.ApplyMutation(ctx, accountID, func(acct *Account) (Mutation, error) {
		var balance decimal.Decimal
		switch kind {
		case KindAdd:
			balance = acct.Balance.Add(amount)
		case KindDeduct:
			if amount.GreaterThan(acct.Balance) {
				return Mutation{}, ErrInsufficientFunds
			}
			balance = acct.Balance.Sub(amount)
		default:
			return Mutation{}, fmt.Errorf("unknown ledger entry kind %q", kind)
		}

		acct.Balance = balance
		mut := Mutation{
			Entry: Entry{
				AccountID:    acct.ID,
				Kind:         kind,
				Amount:       amount,
				BalanceAfter: balance,
				Description:  description,
				CreatedAt:    time.Now().UTC(),
			},
		}
		if sp != nil {
			spCopy := *sp
			spCopy.AccountID = acct.ID
			mut.Sponsorship = &spCopy
		}
		return mut, nil
	})
}

// AddFunds credits the account and returns it with its new balance.
func (svc *service) AddFunds(ctx context.Context, accountID string, amount decimal.Decimal, note string) (Account, error) {
	if note == "" {
		note = fmt.Sprintf("Added %s funds.", amount.StringFixed(2))
	}
	acct, _, err := svc.mutate(ctx, accountID, KindAdd, amount, note, nil)
	return acct, err
}

// DeductFunds debits the account; ErrInsufficientFunds when the amount
// exceeds the balance.
func (svc *service) DeductFunds(ctx context.Context, accountID string, amount decimal.Decimal, note string) (Account, error) {
	if note == "" {
		note = fmt.Sprintf("Deducted %s funds.", amount.StringFixed(2))
	}
	acct, _, err := svc.mutate(ctx, accountID, KindDeduct, amount, note, nil)
	return acct, err
}

// CreateSponsorship commits funds to a student: the sponsorship record,
// the balance deduction and the DEDUCT entry are persisted together or
// not at all.
func (svc *service) CreateSponsorship(ctx context.Context, accountID, studentID, courseID string, amount decimal.Decimal) (Sponsorship, error) {
	sp := Sponsorship{
		StudentID: studentID,
		CourseID:  courseID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	desc := fmt.Sprintf("Sponsorship for student %s", studentID)

	_, mut, err := svc.mutate(ctx, accountID, KindDeduct, amount, desc, &sp)
	if err != nil {
		return Sponsorship{}, err
	}
	return *mut.Sponsorship, nil
}

// ListTransactions returns the account's full ledger, newest first.
func (svc *service) ListTransactions(ctx context.Context, accountID string) ([]Entry, error) {
	if _, err := svc.repo.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	return svc.repo.QueryEntries(ctx, accountID)
}

func (svc *service) QuerySponsorships(ctx context.Context, accountID string, filter SponsorshipFilter) ([]Sponsorship, error) {
	return svc.repo.QuerySponsorships(ctx, accountID, filter)
}

// HasSponsorship reports whether a student is sponsored for a course,
// either directly or through an unscoped sponsorship.
func (svc *service) HasSponsorship(ctx context.Context, studentID, courseID string) (bool, error) {
	return svc.repo.HasSponsorship(ctx, studentID, courseID)
}

// Dashboard aggregates the sponsor's impact: fund totals, distinct
// students and their enrollment progress.
func (svc *service) Dashboard(ctx context.Context, accountID string) (Dashboard, error) {
	acct, err := svc.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return Dashboard{}, err
	}

	totalAdded, err := svc.repo.SumEntries(ctx, accountID, KindAdd)
	if err != nil {
		return Dashboard{}, err
	}
	totalDeducted, err := svc.repo.SumEntries(ctx, accountID, KindDeduct)
	if err != nil {
		return Dashboard{}, err
	}
	totalSponsored, err := svc.repo.SumSponsorships(ctx, accountID)
	if err != nil {
		return Dashboard{}, err
	}

	sps, err := svc.repo.QuerySponsorships(ctx, accountID, SponsorshipFilter{})
	if err != nil {
		return Dashboard{}, err
	}

	students := make([]SponsoredStudent, 0, len(sps))
	seen := make(map[string]bool, len(sps))
	totalProgress := decimal.Zero
	var enrollmentCount int

	for _, sp := range sps {
		seen[sp.StudentID] = true

		enrollments, err := svc.repo.QueryStudentProgress(ctx, sp.StudentID, sp.CourseID)
		if err != nil {
			return Dashboard{}, err
		}
		for _, e := range enrollments {
			totalProgress = totalProgress.Add(e.Progress)
			enrollmentCount++
		}

		students = append(students, SponsoredStudent{
			StudentID:       sp.StudentID,
			SponsoredCourse: sp.CourseID,
			SponsoredAmount: sp.Amount,
			Enrollments:     enrollments,
		})
	}

	avgProgress := decimal.Zero
	if enrollmentCount > 0 {
		avgProgress = totalProgress.Div(decimal.NewFromInt(int64(enrollmentCount))).Round(2)
	}

	return Dashboard{
		SponsorID:              acct.SponsorID,
		Balance:                acct.Balance,
		TotalSponsoredAmount:   totalSponsored,
		TotalFundsAdded:        totalAdded,
		TotalFundsDeducted:     totalDeducted,
		TotalStudentsSponsored: len(seen),
		AverageProgress:        avgProgress,
		Students:               students,
	}, nil
}

func (svc *service) CountAccounts(ctx context.Context) (int, error) {
	return svc.repo.CountAccounts(ctx)
}

// TotalSponsoredAmount sums sponsorships across all accounts (admin analytics).
func (svc *service) TotalSponsoredAmount(ctx context.Context) (decimal.Decimal, error) {
	return svc.repo.SumSponsorships(ctx, "")
}
