package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/mwalimux/elimisha/core"
	"github.com/mwalimux/elimisha/core/assess"
	"github.com/mwalimux/elimisha/core/course"
	"github.com/mwalimux/elimisha/core/enroll"
	"github.com/mwalimux/elimisha/core/user"
	emailsvc "github.com/mwalimux/elimisha/services/email"
	dummydb "github.com/mwalimux/elimisha/storage/database/dummy"
)

func setup(t *testing.T) (*commandLine, *dummydb.DB) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags)
	conf := &core.Config{AppName: "Elimisha", TestMode: true}

	return &commandLine{
		usrRepo:    dummydb.NewUserRepository(db),
		enrollRepo: dummydb.NewEnrollRepository(db),
		assessRepo: dummydb.NewAssessRepository(db),
		mailSvc:    emailsvc.NewConsoleServiceMock(conf),
	}, db
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no email", args: []string{"adduser", "-username", "awe"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "awe", "-email", "awe@test.cd"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "awe", "-email", "awe@test.cd"}, extra: extra{pwd: "mdr"}},
		{name: "update existing", args: []string{"adduser", "-username", "awe", "-email", "awe@test.cd", "-admin"}, extra: extra{pwd: "lol"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, "awe")
			if err != nil {
				t.Fatalf("GetUserByUsernameOrEmail() failed, %v", err)
			}
			if extra, ok := tt.extra.(extra); ok {
				if err := usr.CheckPassword(extra.pwd); err != nil {
					t.Error("failed to set new password")
				}
			}
		})
	}

	// the second run must update, not duplicate
	usrs, err := cli.usrRepo.QueryAllUsers(ctx)
	if err != nil {
		t.Fatalf("QueryAllUsers() failed, %v", err)
	}
	if len(usrs) != 1 {
		t.Errorf("expected 1 user, got %d", len(usrs))
	}
}

func Test_commandLine_remind(t *testing.T) {
	cli, db := setup(t)
	ctx := context.Background()

	emailsvc.ClearSentMessages()

	student := user.User{Name: "Awe Mdr", Username: "awe", Email: "awe@test.cd", Roles: user.StudentRoles}
	student.SetActive(true)
	student, err := cli.usrRepo.CreateUser(ctx, student)
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}

	crs, err := dummydb.NewCourseRepository(db).CreateCourse(ctx, course.Course{Name: "Go 101", Difficulty: "beginner"})
	if err != nil {
		t.Fatalf("CreateCourse() failed, %v", err)
	}
	if _, err = cli.enrollRepo.CreateEnrollment(ctx, enroll.Enrollment{StudentID: student.ID, CourseID: crs.ID}); err != nil {
		t.Fatalf("CreateEnrollment() failed, %v", err)
	}
	if _, err = cli.assessRepo.CreateAssessment(ctx, assess.Assessment{
		CourseID: crs.ID,
		Title:    "Quiz 1",
		DueDate:  time.Now().UTC().Add(24 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateAssessment() failed, %v", err)
	}
	// outside the window; must not be included
	if _, err = cli.assessRepo.CreateAssessment(ctx, assess.Assessment{
		CourseID: crs.ID,
		Title:    "Final Exam",
		DueDate:  time.Now().UTC().Add(30 * 24 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateAssessment() failed, %v", err)
	}

	if err := cli.run([]string{"admin", "remind", "-hours", "48"}); err != nil {
		t.Fatalf("cli.run() failed, %v", err)
	}

	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if msg.To[0].Address != student.Email {
		t.Errorf("reminder sent to %s, want %s", msg.To[0].Address, student.Email)
	}
	if !bytes.Contains([]byte(msg.Subject), []byte("Quiz 1")) {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
}
