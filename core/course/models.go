package course

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/user"
)

type Resource struct {
	Title string `json:"title" yaml:"title" validate:"required"`
	URL   string `json:"url" yaml:"url" validate:"required"`
}

// Module is one video lesson. ID is unique within its Course; Order is 1-based.
type Module struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title" validate:"required"`
	Description string     `json:"description" yaml:"description"`
	VideoURL    string     `json:"video_url" yaml:"video_url"`
	Duration    string     `json:"duration" yaml:"duration"`
	Order       int        `json:"order" yaml:"order" validate:"min=1"`
	Resources   []Resource `json:"resources" yaml:"resources" validate:"dive"`
}

type Course struct {
	ID              string    `json:"id" yaml:"id"`
	Title           string    `json:"title" yaml:"title" validate:"required"`
	Description     string    `json:"description" yaml:"description"`
	ThumbnailURL    string    `json:"thumbnail_url" yaml:"thumbnail_url"`
	Modules         []Module  `json:"modules" yaml:"modules" validate:"dive"`
	RequiredRole    user.Role `json:"required_role" yaml:"required_role" validate:"required,role"`
	AccessCode      string    `json:"access_code,omitempty" yaml:"access_code"` // empty: not code-gated
	IsNoteExclusive bool      `json:"is_note_exclusive" yaml:"is_note_exclusive"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"-"`
}

func (c Course) IsCodeGated() bool { return c.AccessCode != "" }

// Clone returns a deep copy of the course, safe to edit without touching the original.
func (c Course) Clone() Course {
	cp := c
	if c.Modules != nil {
		cp.Modules = make([]Module, len(c.Modules))
		for i, mod := range c.Modules {
			cp.Modules[i] = mod.Clone()
		}
	}
	return cp
}

func (m Module) Clone() Module {
	cp := m
	if m.Resources != nil {
		cp.Resources = make([]Resource, len(m.Resources))
		copy(cp.Resources, m.Resources)
	}
	return cp
}

// SortModules orders the modules by Order (stable).
func (c *Course) SortModules() {
	sort.SliceStable(c.Modules, func(i, j int) bool { return c.Modules[i].Order < c.Modules[j].Order })
}

// FirstModule returns the module with the lowest Order.
func (c Course) FirstModule() (Module, bool) {
	if len(c.Modules) == 0 {
		return Module{}, false
	}
	first := c.Modules[0]
	for _, mod := range c.Modules[1:] {
		if mod.Order < first.Order {
			first = mod
		}
	}
	return first, true
}

func (c Course) Module(id string) (Module, bool) {
	for _, mod := range c.Modules {
		if mod.ID == id {
			return mod, true
		}
	}
	return Module{}, false
}

// NextModule returns the module whose Order is exactly mod.Order+1.
func (c Course) NextModule(mod Module) (Module, bool) {
	for _, m := range c.Modules {
		if m.Order == mod.Order+1 {
			return m, true
		}
	}
	return Module{}, false
}

func (c Course) maxOrder() int {
	var last int
	for _, mod := range c.Modules {
		if mod.Order > last {
			last = mod.Order
		}
	}
	return last
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title           string    `json:"title" validate:"required"`
	Description     string    `json:"description"`
	ThumbnailURL    string    `json:"thumbnail_url" validate:"omitempty,url"`
	RequiredRole    user.Role `json:"required_role" validate:"omitempty,role"`
	AccessCode      string    `json:"access_code"`
	IsNoteExclusive bool      `json:"is_note_exclusive"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.ThumbnailURL = core.CleanString(nc.ThumbnailURL)
	nc.AccessCode = core.CleanString(nc.AccessCode)
	if nc.RequiredRole == "" {
		nc.RequiredRole = user.RoleStudent
	}
	return validate.Struct(nc)
}

// UpdateCourse is a full replacement of the editable course fields, modules included.
type UpdateCourse struct {
	Title           string    `json:"title" validate:"required"`
	Description     string    `json:"description"`
	ThumbnailURL    string    `json:"thumbnail_url" validate:"omitempty,url"`
	Modules         []Module  `json:"modules" validate:"dive"`
	RequiredRole    user.Role `json:"required_role" validate:"required,role"`
	AccessCode      string    `json:"access_code"`
	IsNoteExclusive bool      `json:"is_note_exclusive"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)
	uc.ThumbnailURL = core.CleanString(uc.ThumbnailURL)
	uc.AccessCode = core.CleanString(uc.AccessCode)
	if err := validate.Struct(uc); err != nil {
		return err
	}
	return validateModules(uc.Modules)
}

// NewModule contains information needed to append a Module to a Course.
type NewModule struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	VideoURL    string     `json:"video_url"`
	Duration    string     `json:"duration"`
	Resources   []Resource `json:"resources" validate:"dive"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	nm.VideoURL = core.CleanString(nm.VideoURL)
	return validate.Struct(nm)
}
