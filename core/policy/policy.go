// Package policy centralizes role-based access decisions.
// Every permission check in the app goes through Allow so the rules
// can be tested independently of transport.
package policy

import "github.com/mwalimux/elimisha/core/user"

type Action string

const (
	ActionCreateCourse     Action = "course.create"
	ActionUpdateCourse     Action = "course.update"
	ActionViewCourse       Action = "course.view"
	ActionEnroll           Action = "enrollment.create"
	ActionUpdateProgress   Action = "enrollment.update_progress"
	ActionViewEnrollments  Action = "enrollment.view"
	ActionCreateAssessment Action = "assessment.create"
	ActionSubmitWork       Action = "submission.create"
	ActionGradeSubmission  Action = "submission.grade"
	ActionCreateAccount    Action = "sponsor.create_account"
	ActionAddFunds         Action = "sponsor.add_funds"
	ActionDeductFunds      Action = "sponsor.deduct_funds"
	ActionViewLedger       Action = "sponsor.view_ledger"
	ActionSponsorStudent   Action = "sponsor.create_sponsorship"
	ActionViewDashboard    Action = "sponsor.view_dashboard"
	ActionViewAnalytics    Action = "analytics.view"
)

// Resource describes the object an action targets. Zero values mean
// "not applicable"; OwnerID is the identity the object belongs to
// (course instructor, enrollment student, sponsor account holder...).
type Resource struct {
	OwnerID      string
	InstructorID string
}

// Owned reports whether usr owns the resource.
func (r Resource) Owned(usr user.User) bool {
	return r.OwnerID != "" && r.OwnerID == usr.ID
}

// Instructs reports whether usr is the instructor in charge of the resource.
func (r Resource) Instructs(usr user.User) bool {
	return r.InstructorID != "" && r.InstructorID == usr.ID
}

// Allow maps (identity, action, resource) to an allow/deny decision.
// Admins are allowed everything.
func Allow(usr user.User, action Action, res Resource) bool {
	if usr.IsAdmin() {
		return true
	}

	switch action {
	case ActionCreateCourse:
		return usr.IsInstructor()
	case ActionUpdateCourse, ActionCreateAssessment:
		return usr.IsInstructor() && res.Instructs(usr)
	case ActionViewCourse:
		return true // any authenticated user
	case ActionEnroll, ActionSubmitWork:
		return usr.IsStudent()
	case ActionUpdateProgress:
		return usr.IsStudent() && res.Owned(usr)
	case ActionViewEnrollments:
		return usr.IsStudent() || usr.IsInstructor() || usr.IsSponsor()
	case ActionGradeSubmission:
		return usr.IsInstructor() && res.Instructs(usr)
	case ActionCreateAccount, ActionSponsorStudent:
		return usr.IsSponsor() && (res.OwnerID == "" || res.Owned(usr))
	case ActionAddFunds, ActionDeductFunds, ActionViewLedger, ActionViewDashboard:
		return usr.IsSponsor() && res.Owned(usr)
	case ActionViewAnalytics:
		return false // admin only
	}
	return false
}
