package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core/forum"
)

type forumApi struct {
	svc      *forum.Service
	validate *validator.Validate
}

func registerForumAPI(g *echo.Group, jwt, authed echo.MiddlewareFunc, s *Server) {
	api := forumApi{svc: s.ForumSvc, validate: s.Validate}

	fg := g.Group("/forum/posts", jwt, authed)
	fg.GET("", api.query)
	fg.POST("", api.create) // admins only, checked by the service
	fg.GET("/:id", api.retrieve)
	fg.DELETE("/:id", api.destroy)
	fg.POST("/:id/replies", api.reply)
	fg.DELETE("/:id/replies/:replyId", api.destroyReply)
}

// Handlers

func (api *forumApi) query(ctx echo.Context) error {
	var filter forum.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, forum.PostsPage{Posts: []forum.Post{}})
	}
	page, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *forumApi) retrieve(ctx echo.Context) error {
	post, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting post")
	}
	return ctx.JSON(http.StatusOK, post)
}

func (api *forumApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if !usr.IsAdmin() {
		return forum.ErrForbidden
	}

	var data forum.NewPost
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	post, err := api.svc.CreatePost(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, post)
}

func (api *forumApi) reply(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data forum.NewReply
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReply")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	post, err := api.svc.AddReply(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding reply")
	}
	return ctx.JSON(http.StatusCreated, post)
}

func (api *forumApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeletePost(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *forumApi) destroyReply(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteReply(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("replyId")); err != nil {
		return errors.Wrap(err, "deleting reply")
	}
	return ctx.NoContent(http.StatusNoContent)
}
