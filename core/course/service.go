package course

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrModuleNotFound = errors.New("module not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		QueryCourses(ctx context.Context) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// UpdateCourse fully replaces the stored course with the same ID.
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
	}

	// Catalog is the administrative owner of courses and their modules.
	Catalog struct {
		repo   Repository
		logger core.Logger
		mu     sync.Mutex // serializes read-modify-write edits
	}
)

func NewCatalog(repo Repository, logger core.Logger) *Catalog {
	return &Catalog{repo: repo, logger: logger}
}

func newModuleID(courseID string) string {
	return courseID + "-m" + uuid.New().String()[:8]
}

func (cat *Catalog) Query(ctx context.Context) ([]Course, error) {
	return cat.repo.QueryCourses(ctx)
}

func (cat *Catalog) Get(ctx context.Context, id string) (Course, error) {
	return cat.repo.GetCourse(ctx, id)
}

// Create adds a course with a fresh identifier and no modules.
func (cat *Catalog) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := core.Now()
	role := nc.RequiredRole
	if role == "" {
		role = user.RoleStudent
	}
	crs := Course{
		ID:              uuid.New().String(),
		Title:           nc.Title,
		Description:     nc.Description,
		ThumbnailURL:    nc.ThumbnailURL,
		Modules:         []Module{},
		RequiredRole:    role,
		AccessCode:      nc.AccessCode,
		IsNoteExclusive: nc.IsNoteExclusive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return cat.repo.CreateCourse(ctx, crs)
}

// Update replaces the course identified by `id` with the provided content. `uc` must be validated.
func (cat *Catalog) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	orig, err := cat.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}

	mods := make([]Module, len(uc.Modules))
	for i, mod := range uc.Modules {
		mods[i] = mod.Clone()
		if mods[i].ID == "" {
			mods[i].ID = newModuleID(id)
		}
	}
	crs := Course{
		ID:              orig.ID,
		Title:           uc.Title,
		Description:     uc.Description,
		ThumbnailURL:    uc.ThumbnailURL,
		Modules:         mods,
		RequiredRole:    uc.RequiredRole,
		AccessCode:      uc.AccessCode,
		IsNoteExclusive: uc.IsNoteExclusive,
		CreatedAt:       orig.CreatedAt,
		UpdatedAt:       core.Now(),
	}
	crs.SortModules()
	return cat.repo.UpdateCourse(ctx, crs)
}

// Save appends the course if its ID is unknown, else replaces the stored one.
func (cat *Catalog) Save(ctx context.Context, crs Course) (Course, error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	if err := validateModules(crs.Modules); err != nil {
		return Course{}, err
	}
	crs = crs.Clone()
	if crs.Modules == nil {
		crs.Modules = []Module{}
	}
	crs.SortModules()
	now := core.Now()
	crs.UpdatedAt = now

	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	orig, err := cat.repo.GetCourse(ctx, crs.ID)
	switch errors.Cause(err) {
	case nil:
		crs.CreatedAt = orig.CreatedAt
		return cat.repo.UpdateCourse(ctx, crs)
	case ErrNotFound:
		crs.CreatedAt = now
		return cat.repo.CreateCourse(ctx, crs)
	default:
		return Course{}, errors.Wrap(err, "getting course")
	}
}

// Delete removes the course. Progress records referencing it are left in place.
func (cat *Catalog) Delete(ctx context.Context, id string) error {
	if err := cat.repo.DeleteCourse(ctx, id); err != nil {
		return err
	}
	cat.logger.Info(fmt.Sprintf("course %q deleted", id))
	return nil
}

// AddModule appends a module with Order = module count + 1.
// If an earlier deletion left that order taken, the module goes after the highest order.
func (cat *Catalog) AddModule(ctx context.Context, courseID string, nm NewModule) (Course, error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	crs, err := cat.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Course{}, err
	}

	order := len(crs.Modules) + 1
	if last := crs.maxOrder(); order <= last {
		order = last + 1
	}
	mod := Module{
		ID:          newModuleID(crs.ID),
		Title:       nm.Title,
		Description: nm.Description,
		VideoURL:    nm.VideoURL,
		Duration:    nm.Duration,
		Order:       order,
		Resources:   append([]Resource{}, nm.Resources...),
	}
	crs.Modules = append(crs.Modules, mod)
	crs.UpdatedAt = core.Now()
	return cat.repo.UpdateCourse(ctx, crs)
}

// DeleteModule removes a module without renumbering the remaining ones.
func (cat *Catalog) DeleteModule(ctx context.Context, courseID, moduleID string) (Course, error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	crs, err := cat.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	mods := make([]Module, 0, len(crs.Modules))
	for _, mod := range crs.Modules {
		if mod.ID != moduleID {
			mods = append(mods, mod)
		}
	}
	if len(mods) == len(crs.Modules) {
		return Course{}, ErrModuleNotFound
	}
	crs.Modules = mods
	crs.UpdatedAt = core.Now()
	return cat.repo.UpdateCourse(ctx, crs)
}

// Renumber rewrites module orders to 1..n, keeping their relative order.
func (cat *Catalog) Renumber(ctx context.Context, courseID string) (Course, error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	crs, err := cat.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	crs.SortModules()
	for i := range crs.Modules {
		crs.Modules[i].Order = i + 1
	}
	crs.UpdatedAt = core.Now()
	return cat.repo.UpdateCourse(ctx, crs)
}
