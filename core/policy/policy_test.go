package policy

import (
	"testing"

	"github.com/mwalimux/elimisha/core/user"
)

var (
	admin      = user.User{ID: "adm", Roles: []string{user.RoleAdmin}}
	instructor = user.User{ID: "ins", Roles: []string{user.RoleInstructor}}
	student    = user.User{ID: "stu", Roles: []string{user.RoleStudent}}
	sponsor    = user.User{ID: "spo", Roles: []string{user.RoleSponsor}}
)

func TestAllow(t *testing.T) {
	tests := []struct {
		name   string
		usr    user.User
		action Action
		res    Resource
		want   bool
	}{
		{name: "admin can do anything", usr: admin, action: ActionDeductFunds, res: Resource{OwnerID: "spo"}, want: true},
		{name: "admin views analytics", usr: admin, action: ActionViewAnalytics, want: true},

		{name: "instructor creates course", usr: instructor, action: ActionCreateCourse, want: true},
		{name: "student cannot create course", usr: student, action: ActionCreateCourse, want: false},
		{name: "sponsor cannot create course", usr: sponsor, action: ActionCreateCourse, want: false},
		{name: "instructor updates own course", usr: instructor, action: ActionUpdateCourse, res: Resource{InstructorID: "ins"}, want: true},
		{name: "instructor cannot update another course", usr: instructor, action: ActionUpdateCourse, res: Resource{InstructorID: "other"}, want: false},
		{name: "anyone views courses", usr: sponsor, action: ActionViewCourse, want: true},

		{name: "student enrolls", usr: student, action: ActionEnroll, want: true},
		{name: "instructor cannot enroll", usr: instructor, action: ActionEnroll, want: false},
		{name: "student updates own progress", usr: student, action: ActionUpdateProgress, res: Resource{OwnerID: "stu"}, want: true},
		{name: "student cannot update another progress", usr: student, action: ActionUpdateProgress, res: Resource{OwnerID: "other"}, want: false},

		{name: "instructor creates assessment for own course", usr: instructor, action: ActionCreateAssessment, res: Resource{InstructorID: "ins"}, want: true},
		{name: "instructor grades own course submission", usr: instructor, action: ActionGradeSubmission, res: Resource{InstructorID: "ins"}, want: true},
		{name: "instructor cannot grade other course", usr: instructor, action: ActionGradeSubmission, res: Resource{InstructorID: "other"}, want: false},
		{name: "student cannot grade", usr: student, action: ActionGradeSubmission, res: Resource{InstructorID: "stu"}, want: false},

		{name: "sponsor creates own account", usr: sponsor, action: ActionCreateAccount, want: true},
		{name: "student cannot create sponsor account", usr: student, action: ActionCreateAccount, want: false},
		{name: "sponsor adds funds to own account", usr: sponsor, action: ActionAddFunds, res: Resource{OwnerID: "spo"}, want: true},
		{name: "sponsor cannot fund another account", usr: sponsor, action: ActionAddFunds, res: Resource{OwnerID: "other"}, want: false},
		{name: "sponsor deducts from own account", usr: sponsor, action: ActionDeductFunds, res: Resource{OwnerID: "spo"}, want: true},
		{name: "sponsor sponsors from own account", usr: sponsor, action: ActionSponsorStudent, res: Resource{OwnerID: "spo"}, want: true},
		{name: "student cannot sponsor", usr: student, action: ActionSponsorStudent, res: Resource{OwnerID: "stu"}, want: false},
		{name: "sponsor views own ledger", usr: sponsor, action: ActionViewLedger, res: Resource{OwnerID: "spo"}, want: true},
		{name: "sponsor views own dashboard", usr: sponsor, action: ActionViewDashboard, res: Resource{OwnerID: "spo"}, want: true},
		{name: "student cannot view analytics", usr: student, action: ActionViewAnalytics, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allow(tt.usr, tt.action, tt.res); got != tt.want {
				t.Errorf("Allow() = %v, want %v", got, tt.want)
			}
		})
	}
}
