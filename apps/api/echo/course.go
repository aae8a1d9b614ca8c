package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/access"
	"github.com/trezcool/lumina/core/assistant"
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/progress"
	"github.com/trezcool/lumina/core/reflection"
	"github.com/trezcool/lumina/core/user"
)

type courseApi struct {
	catalog   *course.Catalog
	progress  *progress.Service
	gate      *reflection.Gate
	assistant *assistant.Assistant
	validate  *validator.Validate
	logger    core.Logger
}

func registerCourseAPI(g *echo.Group, jwt, authed echo.MiddlewareFunc, s *Server) {
	api := courseApi{
		catalog:   s.Catalog,
		progress:  s.ProgressSvc,
		gate:      s.Gate,
		assistant: s.Assistant,
		validate:  s.Validate,
		logger:    s.Logger,
	}

	g.GET("/progress", api.queryProgress, jwt, authed)

	cg := g.Group("/courses", jwt, authed)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/unlock", api.unlock)

	mg := cg.Group("/:id/modules/:moduleId")
	mg.GET("", api.retrieveModule)
	mg.PUT("/memo", api.saveMemo)
	mg.POST("/reflection", api.submitReflection)
	mg.POST("/assistant", api.ask)

	// catalog management
	cg.POST("", api.create, adminMiddleware())
	cg.PUT("/:id", api.update, adminMiddleware())
	cg.DELETE("/:id", api.destroy, adminMiddleware())
	cg.POST("/:id/modules", api.addModule, adminMiddleware())
	cg.DELETE("/:id/modules/:moduleId", api.destroyModule, adminMiddleware())
	cg.POST("/:id/renumber", api.renumber, adminMiddleware())
}

type (
	// CourseResponse is a course as seen by one user.
	// Module content (video, resources) is only included when the course can be entered.
	CourseResponse struct {
		course.Course
		CodeGated bool                     `json:"code_gated"`
		Access    access.CourseAccess      `json:"access"`
		States    []access.ModuleState     `json:"module_states"`
		Progress  *progress.CourseProgress `json:"progress"`
	}

	ModuleResponse struct {
		course.Module
		State access.ModuleState `json:"state"`
		Memo  string             `json:"memo"`
	}

	ReflectionResponse struct {
		reflection.Verdict
		State    string                   `json:"state"`
		Progress *progress.CourseProgress `json:"progress"`
	}
)

func newCourseResponse(usr user.User, crs course.Course, prog *progress.CourseProgress) CourseResponse {
	view := access.CourseView(&usr, crs, prog)
	res := CourseResponse{
		Course:    crs.Clone(),
		CodeGated: crs.IsCodeGated(),
		Access:    view,
		States:    []access.ModuleState{},
		Progress:  prog,
	}
	if !usr.IsAdmin() {
		res.AccessCode = ""
	}
	if view.CanEnter() {
		res.States = access.ModuleStates(prog, crs)
	} else {
		for i := range res.Modules {
			res.Modules[i].VideoURL = ""
			res.Modules[i].Resources = []course.Resource{}
		}
	}
	return res
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	courses, err := api.catalog.Query(rctx)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	progs, err := api.progress.QueryUser(rctx, usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying progress")
	}

	res := make([]CourseResponse, 0, len(courses))
	for _, crs := range courses {
		var prog *progress.CourseProgress
		if p, ok := progs[crs.ID]; ok {
			prog = &p
		}
		res = append(res, newCourseResponse(usr, crs, prog))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *courseApi) load(ctx echo.Context) (user.User, course.Course, *progress.CourseProgress, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return user.User{}, course.Course{}, nil, err
	}
	rctx := ctx.Request().Context()

	crs, err := api.catalog.Get(rctx, ctx.Param("id"))
	if err != nil {
		return user.User{}, course.Course{}, nil, errors.Wrap(err, "getting course")
	}
	prog, err := api.progress.Find(rctx, usr.ID, crs.ID)
	if err != nil {
		return user.User{}, course.Course{}, nil, errors.Wrap(err, "finding progress")
	}
	return usr, crs, prog, nil
}

// enterModule loads the module of the request and checks that the user may view it.
func (api *courseApi) enterModule(ctx echo.Context) (user.User, course.Course, course.Module, *progress.CourseProgress, error) {
	usr, crs, prog, err := api.load(ctx)
	if err != nil {
		return user.User{}, course.Course{}, course.Module{}, nil, err
	}
	mod, ok := crs.Module(ctx.Param("moduleId"))
	if !ok {
		return user.User{}, course.Course{}, course.Module{}, nil, course.ErrModuleNotFound
	}
	if !access.CourseView(&usr, crs, prog).CanEnter() {
		return user.User{}, course.Course{}, course.Module{}, nil, errCourseLocked
	}
	if access.IsModuleLocked(prog, mod) {
		return user.User{}, course.Course{}, course.Module{}, nil, errModuleLocked
	}
	return usr, crs, mod, prog, nil
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	usr, crs, prog, err := api.load(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newCourseResponse(usr, crs, prog))
}

func (api *courseApi) retrieveModule(ctx echo.Context) error {
	_, _, mod, prog, err := api.enterModule(ctx)
	if err != nil {
		return err
	}
	res := ModuleResponse{
		Module: mod,
		State: access.ModuleState{
			ModuleID:  mod.ID,
			Completed: access.IsModuleCompleted(prog, mod),
			Current:   prog != nil && prog.CurrentModuleID == mod.ID,
		},
	}
	if prog != nil {
		res.Memo = prog.Memo(mod.ID)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *courseApi) unlock(ctx echo.Context) error {
	usr, crs, _, err := api.load(ctx)
	if err != nil {
		return err
	}
	if !access.CanAccessCourse(&usr, crs) {
		return errCourseLocked
	}

	var data progress.UnlockRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UnlockRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	prog, err := api.progress.Unlock(ctx.Request().Context(), usr.ID, crs, data.Code)
	if err != nil {
		return errors.Wrap(err, "unlocking course")
	}
	return ctx.JSON(http.StatusOK, newCourseResponse(usr, crs, &prog))
}

func (api *courseApi) saveMemo(ctx echo.Context) error {
	usr, crs, mod, _, err := api.enterModule(ctx)
	if err != nil {
		return err
	}

	var data progress.SaveMemo
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveMemo")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	prog, err := api.progress.SaveMemo(ctx.Request().Context(), usr.ID, crs, mod.ID, data.Text)
	if err != nil {
		return errors.Wrap(err, "saving memo")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *courseApi) submitReflection(ctx echo.Context) error {
	usr, crs, prog, err := api.load(ctx)
	if err != nil {
		return err
	}
	mod, ok := crs.Module(ctx.Param("moduleId"))
	if !ok {
		return course.ErrModuleNotFound
	}

	var data TextRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TextRequest")
	}

	// the gate runs its own access checks against fresh progress
	verdict, err := api.gate.Submit(ctx.Request().Context(), usr, crs, mod, data.Text)
	if err != nil {
		return errors.Wrap(err, "submitting reflection")
	}
	if verdict.Passed {
		if prog, err = api.progress.Find(context.WithoutCancel(ctx.Request().Context()), usr.ID, crs.ID); err != nil {
			return errors.Wrap(err, "finding progress")
		}
	}
	return ctx.JSON(http.StatusOK, ReflectionResponse{
		Verdict:  verdict,
		State:    api.gate.State(usr.ID, crs.ID, mod.ID).String(),
		Progress: prog,
	})
}

func (api *courseApi) ask(ctx echo.Context) error {
	_, crs, mod, _, err := api.enterModule(ctx)
	if err != nil {
		return err
	}

	var data assistant.AskRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AskRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	reply := api.assistant.Ask(ctx.Request().Context(), crs, mod, data.Message, data.History)
	return ctx.JSON(http.StatusOK, assistant.AskResponse{Reply: reply})
}

func (api *courseApi) queryProgress(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	progs, err := api.progress.QueryUser(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying progress")
	}
	if progs == nil {
		progs = progress.UserProgress{}
	}
	return ctx.JSON(http.StatusOK, progs)
}

// Catalog management

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.catalog.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.catalog.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.catalog.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addModule(ctx echo.Context) error {
	var data course.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.catalog.AddModule(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding module")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) destroyModule(ctx echo.Context) error {
	crs, err := api.catalog.DeleteModule(ctx.Request().Context(), ctx.Param("id"), ctx.Param("moduleId"))
	if err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) renumber(ctx echo.Context) error {
	crs, err := api.catalog.Renumber(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "renumbering modules")
	}
	return ctx.JSON(http.StatusOK, crs)
}
