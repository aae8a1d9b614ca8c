package progress

import "time"

// CourseProgress is one user's state within one course.
// CompletedModuleIDs has set semantics; CurrentModuleID may point at a module that no longer exists.
type CourseProgress struct {
	UserID             string            `json:"-"`
	CourseID           string            `json:"course_id"`
	CompletedModuleIDs []string          `json:"completed_module_ids"`
	CurrentModuleID    string            `json:"current_module_id"`
	IsUnlocked         bool              `json:"is_unlocked"`
	Memos              map[string]string `json:"memos"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// UserProgress maps course IDs to the user's progress in that course.
type UserProgress map[string]CourseProgress

func newCourseProgress(userID, courseID, currentModuleID string) CourseProgress {
	return CourseProgress{
		UserID:             userID,
		CourseID:           courseID,
		CompletedModuleIDs: []string{},
		CurrentModuleID:    currentModuleID,
		Memos:              map[string]string{},
	}
}

func (p CourseProgress) IsCompleted(moduleID string) bool {
	for _, id := range p.CompletedModuleIDs {
		if id == moduleID {
			return true
		}
	}
	return false
}

// MarkCompleted adds the module to the completed set (no duplicates).
func (p *CourseProgress) MarkCompleted(moduleID string) {
	if !p.IsCompleted(moduleID) {
		p.CompletedModuleIDs = append(p.CompletedModuleIDs, moduleID)
	}
}

func (p CourseProgress) Memo(moduleID string) string {
	return p.Memos[moduleID]
}

// Clone returns a deep copy of the progress. Nil collections stay nil.
func (p CourseProgress) Clone() CourseProgress {
	cp := p
	if p.CompletedModuleIDs != nil {
		cp.CompletedModuleIDs = append([]string{}, p.CompletedModuleIDs...)
	}
	if p.Memos != nil {
		cp.Memos = make(map[string]string, len(p.Memos))
		for k, v := range p.Memos {
			cp.Memos[k] = v
		}
	}
	return cp
}

// UnlockRequest is the payload to unlock a code-gated course.
type UnlockRequest struct {
	Code string `json:"code" validate:"required"`
}

// SaveMemo is the payload to save the note of a module.
type SaveMemo struct {
	Text string `json:"text" validate:"max=20000"`
}
