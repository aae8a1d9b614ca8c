package course

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/user"
)

func TestCourse_navigation(t *testing.T) {
	crs := Course{Modules: []Module{
		{ID: "m3", Order: 3},
		{ID: "m1", Order: 1},
		{ID: "m4", Order: 4},
	}}

	first, ok := crs.FirstModule()
	assert.True(t, ok)
	assert.Equal(t, "m1", first.ID)

	_, ok = crs.NextModule(first) // order 2 was deleted
	assert.False(t, ok)

	next, ok := crs.NextModule(Module{ID: "m3", Order: 3})
	assert.True(t, ok)
	assert.Equal(t, "m4", next.ID)

	assert.Equal(t, 4, crs.maxOrder())

	_, ok = Course{}.FirstModule()
	assert.False(t, ok)

	crs.SortModules()
	assert.Equal(t, "m1", crs.Modules[0].ID)
	assert.Equal(t, "m4", crs.Modules[2].ID)
}

func TestCourse_Clone(t *testing.T) {
	orig := Course{Modules: []Module{{ID: "m1", Resources: []Resource{{Title: "pdf", URL: "https://example.com/a.pdf"}}}}}
	cp := orig.Clone()
	cp.Modules[0].Resources[0].Title = "changed"
	cp.Modules[0].ID = "changed"

	assert.Equal(t, "pdf", orig.Modules[0].Resources[0].Title)
	assert.Equal(t, "m1", orig.Modules[0].ID)
}

func Test_validateModules(t *testing.T) {
	tests := []struct {
		name    string
		mods    []Module
		wantErr error
	}{
		{name: "empty"},
		{name: "gaps allowed", mods: []Module{{ID: "a", Order: 1}, {ID: "b", Order: 3}}},
		{name: "new modules without id", mods: []Module{{Order: 1}, {Order: 2}}},
		{name: "duplicate id", mods: []Module{{ID: "a", Order: 1}, {ID: "a", Order: 2}}, wantErr: ErrDuplicateModuleID},
		{name: "duplicate order", mods: []Module{{ID: "a", Order: 1}, {ID: "b", Order: 1}}, wantErr: ErrDuplicateModuleOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateModules(tt.mods)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr.Error())
		})
	}
}

func TestNewCourse_Validate_accessCode(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	nc := NewCourse{Title: "在宅医療", AccessCode: "  zaitaku2024 "}
	assert.NoError(t, nc.Validate(validate))
	assert.Equal(t, "zaitaku2024", nc.AccessCode, "stored codes are trimmed")
	assert.Equal(t, user.RoleStudent, nc.RequiredRole)

	uc := UpdateCourse{Title: "在宅医療", RequiredRole: user.RoleStudent, AccessCode: "\tZaitaku2024\n"}
	assert.NoError(t, uc.Validate(validate))
	assert.Equal(t, "Zaitaku2024", uc.AccessCode, "case is kept")
}
