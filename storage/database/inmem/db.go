package inmemdb

import (
	"sync"

	"github.com/trezcool/lumina/core/announcement"
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/forum"
	"github.com/trezcool/lumina/core/progress"
	"github.com/trezcool/lumina/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]user.User
	}

	courseTable struct {
		mutex sync.RWMutex
		table map[string]course.Course
		seq   []string // insertion order
	}

	progressKey struct {
		userID   string
		courseID string
	}

	progressTable struct {
		mutex sync.RWMutex
		table map[progressKey]progress.CourseProgress
	}

	postTable struct {
		mutex sync.RWMutex
		table map[string]forum.Post
	}

	announcementTable struct {
		mutex sync.RWMutex
		table map[string]announcement.Announcement
	}

	// DB is a process-local store backed by mutex-guarded maps.
	// Values are copied in and out, callers never share memory with the store.
	DB struct {
		user         *userTable
		course       *courseTable
		progress     *progressTable
		post         *postTable
		announcement *announcementTable
	}
)

func New() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]user.User)},
		course:       &courseTable{table: make(map[string]course.Course)},
		progress:     &progressTable{table: make(map[progressKey]progress.CourseProgress)},
		post:         &postTable{table: make(map[string]forum.Post)},
		announcement: &announcementTable{table: make(map[string]announcement.Announcement)},
	}
}
