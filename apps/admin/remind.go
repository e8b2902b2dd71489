package main

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/mwalimux/elimisha/core"
	"github.com/mwalimux/elimisha/core/enroll"
)

// remind emails every enrolled student about assessments due within the window.
func (cli *commandLine) remind(hours int) error {
	ctx := context.Background()
	deadline := time.Now().UTC().Add(time.Duration(hours) * time.Hour)

	assessments, err := cli.assessRepo.QueryAssessmentsDueBefore(ctx, deadline)
	if err != nil {
		return err
	}

	var messages []*core.EmailMessage
	for _, a := range assessments {
		enrollments, err := cli.enrollRepo.FilterEnrollments(ctx, enroll.QueryFilter{CourseID: a.CourseID})
		if err != nil {
			return err
		}
		for _, enr := range enrollments {
			usr, err := cli.usrRepo.GetUserByID(ctx, enr.StudentID)
			if err != nil {
				return err
			}
			messages = append(messages, &core.EmailMessage{
				To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
				Subject: fmt.Sprintf("Reminder: %q is due soon", a.Title),
				Body: fmt.Sprintf(
					"Hi %s,\n\nThe assessment %q for %q is due on %s.\n\nGood luck!",
					usr.Name, a.Title, enr.CourseName, a.DueDate.Format(time.RFC1123),
				),
			})
		}
	}
	if len(messages) == 0 {
		logger.Println("no assessments due, nothing to send")
		return nil
	}

	cli.mailSvc.SendMessages(messages...)
	logger.Printf("sent %d reminder(s)\n", len(messages))
	return nil
}
