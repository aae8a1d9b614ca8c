package course_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/user"
	inmemdb "github.com/trezcool/lumina/storage/database/inmem"
	testutil "github.com/trezcool/lumina/tests"
)

func newCatalog() (*course.Catalog, course.Repository) {
	repo := inmemdb.NewCourseRepository(inmemdb.New())
	return course.NewCatalog(repo, testutil.NewLogger()), repo
}

func orders(crs course.Course) []int {
	res := make([]int, 0, len(crs.Modules))
	for _, mod := range crs.Modules {
		res = append(res, mod.Order)
	}
	return res
}

func TestCatalog_Create(t *testing.T) {
	cat, _ := newCatalog()
	ctx := context.Background()

	crs, err := cat.Create(ctx, course.NewCourse{Title: "在宅医療入門"})
	require.NoError(t, err)
	assert.NotEmpty(t, crs.ID)
	assert.Empty(t, crs.Modules)
	assert.Equal(t, user.RoleStudent, crs.RequiredRole)

	got, err := cat.Get(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, crs.Title, got.Title)

	_, err = cat.Get(ctx, "ghost")
	assert.Equal(t, course.ErrNotFound, err)
}

func TestCatalog_AddModule(t *testing.T) {
	cat, _ := newCatalog()
	ctx := context.Background()

	crs, err := cat.Create(ctx, course.NewCourse{Title: "Course"})
	require.NoError(t, err)

	for _, title := range []string{"One", "Two", "Three"} {
		crs, err = cat.AddModule(ctx, crs.ID, course.NewModule{Title: title})
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2, 3}, orders(crs))
	for _, mod := range crs.Modules {
		assert.True(t, strings.HasPrefix(mod.ID, crs.ID+"-m"), "module id %q", mod.ID)
	}

	// deleting the second leaves a gap; the next module goes after the highest order
	crs, err = cat.DeleteModule(ctx, crs.ID, crs.Modules[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, orders(crs))

	crs, err = cat.AddModule(ctx, crs.ID, course.NewModule{Title: "Four"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, orders(crs))

	crs, err = cat.Renumber(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, orders(crs))
	assert.Equal(t, "Four", crs.Modules[2].Title)

	_, err = cat.DeleteModule(ctx, crs.ID, "ghost")
	assert.Equal(t, course.ErrModuleNotFound, err)
	_, err = cat.AddModule(ctx, "ghost", course.NewModule{Title: "x"})
	assert.Equal(t, course.ErrNotFound, err)
}

func TestCatalog_Save(t *testing.T) {
	cat, repo := newCatalog()
	ctx := context.Background()
	crs := testutil.NewCourse("c1", user.RoleStudent, "", "One", "Two")

	saved, err := cat.Save(ctx, crs)
	require.NoError(t, err)
	assert.Equal(t, "c1", saved.ID)

	saved.Title = "Renamed"
	saved, err = cat.Save(ctx, saved)
	require.NoError(t, err)

	all, err := cat.Query(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Renamed", all[0].Title)

	// replacement never leaks back through shared memory
	saved.Modules[0].Title = "mutated"
	stored, err := repo.GetCourse(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "One", stored.Modules[0].Title)

	dup := crs.Clone()
	dup.Modules[1].Order = 1
	_, err = cat.Save(ctx, dup)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, course.ErrDuplicateModuleOrder, verr.Err)
}

func TestCatalog_Update(t *testing.T) {
	cat, _ := newCatalog()
	ctx := context.Background()
	crs, err := cat.Save(ctx, testutil.NewCourse("c1", user.RoleStudent, "", "One", "Two"))
	require.NoError(t, err)

	uc := course.UpdateCourse{
		Title:        "Updated",
		RequiredRole: user.RoleAdvanced,
		AccessCode:   "secret",
		Modules: []course.Module{
			{Title: "New last", Order: 5},
			crs.Modules[0],
		},
	}
	updated, err := cat.Update(ctx, crs.ID, uc)
	require.NoError(t, err)
	assert.Equal(t, crs.CreatedAt, updated.CreatedAt)
	assert.Equal(t, []int{1, 5}, orders(updated))
	assert.Equal(t, "c1-m1", updated.Modules[0].ID)
	assert.NotEmpty(t, updated.Modules[1].ID)
	assert.True(t, updated.IsCodeGated())

	_, err = cat.Update(ctx, "ghost", uc)
	assert.Equal(t, course.ErrNotFound, err)
}

func TestCatalog_Delete(t *testing.T) {
	cat, _ := newCatalog()
	ctx := context.Background()
	_, err := cat.Save(ctx, testutil.NewCourse("c1", user.RoleStudent, "", "One"))
	require.NoError(t, err)

	require.NoError(t, cat.Delete(ctx, "c1"))
	assert.Equal(t, course.ErrNotFound, cat.Delete(ctx, "c1"))
}
