// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/user"
	logsvc "github.com/trezcool/lumina/services/logger"
)

// NewLogger returns a quiet logger with Rollbar disabled.
func NewLogger() *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(zap.NewNop(), core.NewTestConfig())
	logger.Enable(false)
	return logger
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	job user.JobTitle,
	isVerified bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:       name,
		Email:      email,
		Role:       role,
		JobTitle:   job,
		IsVerified: isVerified,
		AvatarURL:  user.AvatarURL(name),
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// NewCourse returns a course with one module per title, ordered from 1.
func NewCourse(id string, role user.Role, accessCode string, titles ...string) course.Course {
	now := time.Now().UTC()
	crs := course.Course{
		ID:           id,
		Title:        "Course " + id,
		Modules:      make([]course.Module, 0, len(titles)),
		RequiredRole: role,
		AccessCode:   accessCode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for i, title := range titles {
		crs.Modules = append(crs.Modules, course.Module{
			ID:          id + "-m" + string(rune('1'+i)),
			Title:       title,
			Description: title + " description",
			Order:       i + 1,
		})
	}
	return crs
}

func CreateCourse(t *testing.T, repo course.Repository, crs course.Course) course.Course {
	t.Helper()
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}
