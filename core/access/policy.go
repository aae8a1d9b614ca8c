// Package access holds the course and module gating rules.
// Every function here is pure: all state comes in as parameters.
package access

import (
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/progress"
	"github.com/trezcool/lumina/core/user"
)

// IsCourseUnlocked reports whether the access-code gate of the course is open for the user.
// prog is the user's progress for that course (nil if none).
func IsCourseUnlocked(usr *user.User, crs course.Course, prog *progress.CourseProgress) bool {
	if !crs.IsCodeGated() {
		return true
	}
	if usr != nil && usr.IsAdmin() {
		return true
	}
	return prog != nil && prog.IsUnlocked
}

// CanAccessCourse reports whether the user's role and verification allow them to see the course.
func CanAccessCourse(usr *user.User, crs course.Course) bool {
	if usr == nil {
		return false
	}

	if usr.IsAdmin() {
		return true
	}
	// regulated users must be verified, whatever the course settings
	if usr.IsRegulated() && !usr.IsVerified {
		return false
	}

	switch crs.RequiredRole {
	case user.RoleStudent: // open tier
		return true
	case user.RoleAdvanced, user.RoleAdmin:
		return usr.Role == crs.RequiredRole
	}
	// unknown required roles are an exact-match requirement, not a hierarchy
	return usr.Role == crs.RequiredRole
}

// IsModuleCompleted reports whether the module is in the completed set.
func IsModuleCompleted(prog *progress.CourseProgress, mod course.Module) bool {
	return prog != nil && prog.IsCompleted(mod.ID)
}

// IsModuleLocked applies the deny-by-default module gate.
// Without progress only the module with order 1 is open. With progress a module is open
// only if it was completed or is the current pointer; order alone never unlocks it.
func IsModuleLocked(prog *progress.CourseProgress, mod course.Module) bool {
	if prog == nil {
		return mod.Order != 1
	}
	if prog.IsCompleted(mod.ID) {
		return false
	}
	return mod.ID == "" || mod.ID != prog.CurrentModuleID
}

// ModuleState is the gate view of one module for one user.
type ModuleState struct {
	ModuleID  string `json:"module_id"`
	Locked    bool   `json:"locked"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
}

// ModuleStates returns the gate view of every module of the course, in course order.
func ModuleStates(prog *progress.CourseProgress, crs course.Course) []ModuleState {
	states := make([]ModuleState, 0, len(crs.Modules))
	for _, mod := range crs.Modules {
		states = append(states, ModuleState{
			ModuleID:  mod.ID,
			Locked:    IsModuleLocked(prog, mod),
			Completed: IsModuleCompleted(prog, mod),
			Current:   prog != nil && prog.CurrentModuleID == mod.ID,
		})
	}
	return states
}

// CourseAccess summarises how a course may be entered by a user.
type CourseAccess struct {
	Accessible           bool `json:"accessible"`
	Unlocked             bool `json:"unlocked"`
	NeedsCode            bool `json:"needs_code"`
	RequiresVerification bool `json:"requires_verification"`
}

// CanEnter reports whether the course content may be shown.
func (ca CourseAccess) CanEnter() bool { return ca.Accessible && ca.Unlocked }

func CourseView(usr *user.User, crs course.Course, prog *progress.CourseProgress) CourseAccess {
	unlocked := IsCourseUnlocked(usr, crs, prog)
	return CourseAccess{
		Accessible:           CanAccessCourse(usr, crs),
		Unlocked:             unlocked,
		NeedsCode:            !unlocked,
		RequiresVerification: usr != nil && usr.PendingVerification(),
	}
}
