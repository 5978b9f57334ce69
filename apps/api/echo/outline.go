package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo/apps/gateway"
	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
)

type outlineApi struct {
	gw *gateway.Gateway
}

type (
	renameSectionRequest struct {
		Name string `json:"name"`
	}

	renameActivityRequest struct {
		Title string `json:"title"`
	}
)

func registerOutlineAPI(g *echo.Group, gw *gateway.Gateway) {
	api := outlineApi{gw: gw}

	g.POST("/outline", api.dispatch)

	g.GET("/courses", api.queryCourses)
	g.GET("/courses/:course_id/tree", api.listTree)
	g.POST("/courses/:course_id/sections", api.createSection)

	sg := g.Group("/sections/:section_id")
	sg.PUT("", api.renameSection)
	sg.DELETE("", api.deleteSection)
	sg.POST("/activities", api.createActivity)

	ag := g.Group("/activities/:activity_id")
	ag.PUT("", api.renameActivity)
	ag.PATCH("", api.updateActivity)
	ag.DELETE("", api.deleteActivity)
}

// bind strictly decodes the request body into v.
func bind(ctx echo.Context, v interface{}) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "body", Error: "could not read request body"})
	}
	return gateway.Decode(body, v)
}

// Handlers

func (api *outlineApi) dispatch(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "body", Error: "could not read request body"})
	}
	resp, err := api.gw.Dispatch(ctx.Request().Context(), body)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *outlineApi) queryCourses(ctx echo.Context) error {
	courses, err := api.gw.QueryCourses(ctx.Request().Context())
	if err != nil {
		return err
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *outlineApi) listTree(ctx echo.Context) error {
	resp, err := api.gw.ListTree(ctx.Request().Context(), ctx.Param("course_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *outlineApi) createSection(ctx echo.Context) error {
	var data course.NewSection
	if err := bind(ctx, &data); err != nil {
		return err
	}
	resp, err := api.gw.CreateSection(ctx.Request().Context(), ctx.Param("course_id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (api *outlineApi) renameSection(ctx echo.Context) error {
	var data renameSectionRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	resp, err := api.gw.RenameSection(ctx.Request().Context(), ctx.Param("section_id"), data.Name)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *outlineApi) deleteSection(ctx echo.Context) error {
	resp, err := api.gw.DeleteSection(ctx.Request().Context(), ctx.Param("section_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *outlineApi) createActivity(ctx echo.Context) error {
	var data course.NewActivity
	if err := bind(ctx, &data); err != nil {
		return err
	}
	resp, err := api.gw.CreateActivity(ctx.Request().Context(), ctx.Param("section_id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (api *outlineApi) renameActivity(ctx echo.Context) error {
	var data renameActivityRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	resp, err := api.gw.RenameActivity(ctx.Request().Context(), ctx.Param("activity_id"), data.Title)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *outlineApi) updateActivity(ctx echo.Context) error {
	var data course.UpdateActivity
	if err := bind(ctx, &data); err != nil {
		return err
	}
	resp, err := api.gw.UpdateActivity(ctx.Request().Context(), ctx.Param("activity_id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *outlineApi) deleteActivity(ctx echo.Context) error {
	resp, err := api.gw.DeleteActivity(ctx.Request().Context(), ctx.Param("activity_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}
