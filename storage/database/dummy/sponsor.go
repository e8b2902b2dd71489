package dummydb

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core/sponsor"
)

type sponsorRepository struct {
	db          *sponsorTables
	enrollments *enrollTable
	courses     *courseTable
}

var _ sponsor.Repository = (*sponsorRepository)(nil) // interface compliance check

func NewSponsorRepository(db *DB) *sponsorRepository {
	return &sponsorRepository{db: db.sponsor, enrollments: db.enroll, courses: db.course}
}

func (repo *sponsorRepository) CreateAccount(ctx context.Context, acct sponsor.Account) (sponsor.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.db.accounts {
		if a.SponsorID == acct.SponsorID {
			return sponsor.Account{}, sponsor.ErrAccountExists
		}
	}
	acct.ID = uuid.New().String()
	repo.db.accounts[acct.ID] = &acct
	repo.db.accountLocks[acct.ID] = &sync.Mutex{}
	return acct, nil
}

func (repo *sponsorRepository) GetAccountByID(ctx context.Context, id string) (sponsor.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if acct, ok := repo.db.accounts[id]; ok {
		return *acct, nil
	}
	return sponsor.Account{}, sponsor.ErrNotFound
}

func (repo *sponsorRepository) GetAccountBySponsorID(ctx context.Context, sponsorID string) (sponsor.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acct := range repo.db.accounts {
		if acct.SponsorID == sponsorID {
			return *acct, nil
		}
	}
	return sponsor.Account{}, sponsor.ErrNotFound
}

func (repo *sponsorRepository) QueryAllAccounts(ctx context.Context) ([]sponsor.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	accts := make([]sponsor.Account, 0, len(repo.db.accounts))
	for _, acct := range repo.db.accounts {
		accts = append(accts, *acct)
	}
	sort.Slice(accts, func(i, j int) bool { return accts[i].CreatedAt.Before(accts[j].CreatedAt) })
	return accts, nil
}

func (repo *sponsorRepository) CountAccounts(ctx context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.accounts), nil
}

// getAccountLock returns the account's mutation mutex, creating it on
// first use.
func (repo *sponsorRepository) getAccountLock(accountID string) *sync.Mutex {
	repo.db.Lock()
	defer repo.db.Unlock()

	mu, ok := repo.db.accountLocks[accountID]
	if !ok {
		mu = &sync.Mutex{}
		repo.db.accountLocks[accountID] = mu
	}
	return mu
}

// ApplyMutation serializes balance changes per account. apply runs on a
// copy of the account; nothing is persisted unless it succeeds.
func (repo *sponsorRepository) ApplyMutation(ctx context.Context, accountID string, apply func(acct *sponsor.Account) (sponsor.Mutation, error)) (sponsor.Account, sponsor.Mutation, error) {
	mu := repo.getAccountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	acct, err := repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return sponsor.Account{}, sponsor.Mutation{}, err
	}

	mut, err := apply(&acct)
	if err != nil {
		return sponsor.Account{}, sponsor.Mutation{}, err
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.accounts[accountID].Balance = acct.Balance
	mut.Entry.ID = uuid.New().String()
	repo.db.entries = append(repo.db.entries, mut.Entry)
	if mut.Sponsorship != nil {
		mut.Sponsorship.ID = uuid.New().String()
		repo.db.sponsorships[mut.Sponsorship.ID] = mut.Sponsorship
	}
	return acct, mut, nil
}

// QueryEntries returns the account's ledger, newest first.
func (repo *sponsorRepository) QueryEntries(ctx context.Context, accountID string) ([]sponsor.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]sponsor.Entry, 0)
	for i := len(repo.db.entries) - 1; i >= 0; i-- {
		if repo.db.entries[i].AccountID == accountID {
			entries = append(entries, repo.db.entries[i])
		}
	}
	return entries, nil
}

func (repo *sponsorRepository) SumEntries(ctx context.Context, accountID, kind string) (decimal.Decimal, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sum := decimal.Zero
	for _, e := range repo.db.entries {
		if e.AccountID == accountID && e.Kind == kind {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (repo *sponsorRepository) QuerySponsorships(ctx context.Context, accountID string, filter sponsor.SponsorshipFilter) ([]sponsor.Sponsorship, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sps := make([]sponsor.Sponsorship, 0)
	for _, sp := range repo.db.sponsorships {
		if accountID != "" && sp.AccountID != accountID {
			continue
		}
		if filter.StudentID != "" && sp.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && sp.CourseID != filter.CourseID {
			continue
		}
		sps = append(sps, *sp)
	}
	sort.Slice(sps, func(i, j int) bool { return sps[i].CreatedAt.Before(sps[j].CreatedAt) })
	return sps, nil
}

func (repo *sponsorRepository) HasSponsorship(ctx context.Context, studentID, courseID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sp := range repo.db.sponsorships {
		if sp.StudentID != studentID {
			continue
		}
		// an unscoped sponsorship covers any course
		if sp.CourseID == "" || sp.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *sponsorRepository) SumSponsorships(ctx context.Context, accountID string) (decimal.Decimal, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sum := decimal.Zero
	for _, sp := range repo.db.sponsorships {
		if accountID != "" && sp.AccountID != accountID {
			continue
		}
		sum = sum.Add(sp.Amount)
	}
	return sum, nil
}

func (repo *sponsorRepository) QueryStudentProgress(ctx context.Context, studentID, courseID string) ([]sponsor.EnrollmentProgress, error) {
	courseNames := make(map[string]string)
	repo.courses.RLock()
	for id, crs := range repo.courses.table {
		courseNames[id] = crs.Name
	}
	repo.courses.RUnlock()

	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()

	progress := make([]sponsor.EnrollmentProgress, 0)
	for _, enr := range repo.enrollments.table {
		if enr.StudentID != studentID {
			continue
		}
		if courseID != "" && enr.CourseID != courseID {
			continue
		}
		progress = append(progress, sponsor.EnrollmentProgress{
			CourseID:   enr.CourseID,
			CourseName: courseNames[enr.CourseID],
			Progress:   enr.Progress,
			EnrolledAt: enr.EnrolledAt,
		})
	}
	sort.Slice(progress, func(i, j int) bool { return progress[i].EnrolledAt.Before(progress[j].EnrolledAt) })
	return progress, nil
}
