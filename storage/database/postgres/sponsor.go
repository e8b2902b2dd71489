package pgrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimux/elimisha/core/sponsor"
)

type sponsorRepository struct {
	db *sqlx.DB
}

var _ sponsor.Repository = (*sponsorRepository)(nil) // interface compliance check

func NewSponsorRepository(db *sqlx.DB) *sponsorRepository {
	return &sponsorRepository{db: db}
}

type accountRow struct {
	ID        string          `db:"id"`
	SponsorID string          `db:"sponsor_id"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
}

func (row accountRow) toAccount() sponsor.Account {
	return sponsor.Account{
		ID:        row.ID,
		SponsorID: row.SponsorID,
		Balance:   row.Balance,
		CreatedAt: row.CreatedAt,
	}
}

type entryRow struct {
	ID           string          `db:"id"`
	AccountID    string          `db:"account_id"`
	Kind         string          `db:"kind"`
	Amount       decimal.Decimal `db:"amount"`
	BalanceAfter decimal.Decimal `db:"balance_after"`
	Description  string          `db:"description"`
	CreatedAt    time.Time       `db:"created_at"`
}

func (row entryRow) toEntry() sponsor.Entry {
	return sponsor.Entry{
		ID:           row.ID,
		AccountID:    row.AccountID,
		Kind:         row.Kind,
		Amount:       row.Amount,
		BalanceAfter: row.BalanceAfter,
		Description:  row.Description,
		CreatedAt:    row.CreatedAt,
	}
}

type sponsorshipRow struct {
	ID        string          `db:"id"`
	AccountID string          `db:"account_id"`
	StudentID string          `db:"student_id"`
	CourseID  null.String     `db:"course_id"`
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"created_at"`
}

func (row sponsorshipRow) toSponsorship() sponsor.Sponsorship {
	return sponsor.Sponsorship{
		ID:        row.ID,
		AccountID: row.AccountID,
		StudentID: row.StudentID,
		CourseID:  row.CourseID.String,
		Amount:    row.Amount,
		CreatedAt: row.CreatedAt,
	}
}

func toSponsorships(rows []sponsorshipRow) []sponsor.Sponsorship {
	sps := make([]sponsor.Sponsorship, 0, len(rows))
	for _, row := range rows {
		sps = append(sps, row.toSponsorship())
	}
	return sps
}

// trapNoRowsErr maps psql "no rows" err to sponsor.ErrNotFound
func (repo sponsorRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return sponsor.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const accountColumns = "id, sponsor_id, balance, created_at"
const entryColumns = "id, account_id, kind, amount, balance_after, description, created_at"
const sponsorshipColumns = "id, account_id, student_id, course_id, amount, created_at"

func (repo sponsorRepository) CreateAccount(ctx context.Context, acct sponsor.Account) (sponsor.Account, error) {
	query := `
		INSERT INTO sponsor_accounts (sponsor_id, balance, created_at)
		VALUES ($1, $2, $3)
		RETURNING ` + accountColumns
	var row accountRow
	if err := repo.db.GetContext(ctx, &row, query, acct.SponsorID, acct.Balance, acct.CreatedAt.UTC()); err != nil {
		return sponsor.Account{}, errors.Wrap(err, "inserting sponsor account")
	}
	return row.toAccount(), nil
}

func (repo sponsorRepository) GetAccountByID(ctx context.Context, id string) (sponsor.Account, error) {
	var row accountRow
	query := fmt.Sprintf("SELECT %s FROM sponsor_accounts WHERE id = $1", accountColumns)
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return sponsor.Account{}, repo.trapNoRowsErr(err, "getting sponsor account by id")
	}
	return row.toAccount(), nil
}

func (repo sponsorRepository) GetAccountBySponsorID(ctx context.Context, sponsorID string) (sponsor.Account, error) {
	var row accountRow
	query := fmt.Sprintf("SELECT %s FROM sponsor_accounts WHERE sponsor_id = $1", accountColumns)
	if err := repo.db.GetContext(ctx, &row, query, sponsorID); err != nil {
		return sponsor.Account{}, repo.trapNoRowsErr(err, "getting sponsor account by sponsor")
	}
	return row.toAccount(), nil
}

func (repo sponsorRepository) QueryAllAccounts(ctx context.Context) ([]sponsor.Account, error) {
	var rows []accountRow
	query := fmt.Sprintf("SELECT %s FROM sponsor_accounts ORDER BY created_at", accountColumns)
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying sponsor accounts")
	}
	accts := make([]sponsor.Account, 0, len(rows))
	for _, row := range rows {
		accts = append(accts, row.toAccount())
	}
	return accts, nil
}

func (repo sponsorRepository) CountAccounts(ctx context.Context) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM sponsor_accounts"); err != nil {
		return 0, errors.Wrap(err, "counting sponsor accounts")
	}
	return count, nil
}

// ApplyMutation locks the account row FOR UPDATE, runs apply, then
// writes the balance, the ledger entry and the optional sponsorship in
// the same transaction. Any failure rolls everything back.
func (repo sponsorRepository) ApplyMutation(ctx context.Context, accountID string, apply func(acct *sponsor.Account) (sponsor.Mutation, error)) (acct sponsor.Account, mut sponsor.Mutation, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return sponsor.Account{}, sponsor.Mutation{}, errors.Wrap(err, "beginning ledger transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row accountRow
	query := fmt.Sprintf("SELECT %s FROM sponsor_accounts WHERE id = $1 FOR UPDATE", accountColumns)
	if err = tx.GetContext(ctx, &row, query, accountID); err != nil {
		err = repo.trapNoRowsErr(err, "locking sponsor account")
		return sponsor.Account{}, sponsor.Mutation{}, err
	}
	acct = row.toAccount()

	if mut, err = apply(&acct); err != nil {
		return sponsor.Account{}, sponsor.Mutation{}, err
	}

	if _, err = tx.ExecContext(ctx, "UPDATE sponsor_accounts SET balance = $1 WHERE id = $2", acct.Balance, accountID); err != nil {
		err = errors.Wrap(err, "updating balance")
		return sponsor.Account{}, sponsor.Mutation{}, err
	}

	entryQuery := `
		INSERT INTO ledger_entries (account_id, kind, amount, balance_after, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	e := mut.Entry
	if err = tx.GetContext(ctx, &mut.Entry.ID, entryQuery, e.AccountID, e.Kind, e.Amount, e.BalanceAfter, e.Description, e.CreatedAt.UTC()); err != nil {
		err = errors.Wrap(err, "inserting ledger entry")
		return sponsor.Account{}, sponsor.Mutation{}, err
	}

	if mut.Sponsorship != nil {
		sp := mut.Sponsorship
		spQuery := `
			INSERT INTO sponsorships (account_id, student_id, course_id, amount, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`
		courseID := null.NewString(sp.CourseID, sp.CourseID != "")
		if err = tx.GetContext(ctx, &sp.ID, spQuery, sp.AccountID, sp.StudentID, courseID, sp.Amount, sp.CreatedAt.UTC()); err != nil {
			err = errors.Wrap(err, "inserting sponsorship")
			return sponsor.Account{}, sponsor.Mutation{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = errors.Wrap(err, "committing ledger transaction")
		return sponsor.Account{}, sponsor.Mutation{}, err
	}
	return acct, mut, nil
}

func (repo sponsorRepository) QueryEntries(ctx context.Context, accountID string) ([]sponsor.Entry, error) {
	var rows []entryRow
	query := fmt.Sprintf("SELECT %s FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC", entryColumns)
	if err := repo.db.SelectContext(ctx, &rows, query, accountID); err != nil {
		return nil, errors.Wrap(err, "querying ledger entries")
	}
	entries := make([]sponsor.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}

func (repo sponsorRepository) SumEntries(ctx context.Context, accountID, kind string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := "SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE account_id = $1 AND kind = $2"
	if err := repo.db.GetContext(ctx, &sum, query, accountID, kind); err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "summing ledger entries")
	}
	return sum, nil
}

func (repo sponsorRepository) QuerySponsorships(ctx context.Context, accountID string, filter sponsor.SponsorshipFilter) ([]sponsor.Sponsorship, error) {
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if accountID != "" {
		conds = append(conds, "account_id = "+arg(accountID))
	}
	if filter.StudentID != "" {
		conds = append(conds, "student_id = "+arg(filter.StudentID))
	}
	if filter.CourseID != "" {
		conds = append(conds, "course_id = "+arg(filter.CourseID))
	}

	query := fmt.Sprintf("SELECT %s FROM sponsorships", sponsorshipColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"

	var rows []sponsorshipRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying sponsorships")
	}
	return toSponsorships(rows), nil
}

func (repo sponsorRepository) HasSponsorship(ctx context.Context, studentID, courseID string) (bool, error) {
	var exists bool
	// an unscoped sponsorship covers any course
	query := "SELECT EXISTS (SELECT 1 FROM sponsorships WHERE student_id = $1 AND (course_id IS NULL OR course_id = $2))"
	if err := repo.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, errors.Wrap(err, "checking sponsorship")
	}
	return exists, nil
}

func (repo sponsorRepository) SumSponsorships(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := "SELECT COALESCE(SUM(amount), 0) FROM sponsorships"
	args := []interface{}{}
	if accountID != "" {
		query += " WHERE account_id = $1"
		args = append(args, accountID)
	}
	if err := repo.db.GetContext(ctx, &sum, query, args...); err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "summing sponsorships")
	}
	return sum, nil
}

func (repo sponsorRepository) QueryStudentProgress(ctx context.Context, studentID, courseID string) ([]sponsor.EnrollmentProgress, error) {
	query := `
		SELECT e.course_id, c.name AS course_name, e.progress, e.enrolled_at
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.student_id = $1`
	args := []interface{}{studentID}
	if courseID != "" {
		query += " AND e.course_id = $2"
		args = append(args, courseID)
	}
	query += " ORDER BY e.enrolled_at"

	var rows []struct {
		CourseID   string          `db:"course_id"`
		CourseName string          `db:"course_name"`
		Progress   decimal.Decimal `db:"progress"`
		EnrolledAt time.Time       `db:"enrolled_at"`
	}
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying student progress")
	}

	progress := make([]sponsor.EnrollmentProgress, 0, len(rows))
	for _, row := range rows {
		progress = append(progress, sponsor.EnrollmentProgress{
			CourseID:   row.CourseID,
			CourseName: row.CourseName,
			Progress:   row.Progress,
			EnrolledAt: row.EnrolledAt,
		})
	}
	return progress, nil
}
