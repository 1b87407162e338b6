package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/fluentify/backend/core/exam"
	"github.com/fluentify/backend/core/question"
	"github.com/fluentify/backend/core/user"
)

type examApi struct {
	svc    *exam.Service
	usrSvc user.Service
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *exam.Service, usrSvc user.Service) {
	api := examApi{svc: svc, usrSvc: usrSvc}

	eg := g.Group("/exams", jwt)
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)

	// staff endpoints; per-route middleware so the GET list routes stay reachable
	staff := staffMiddleware()
	eg.POST("", api.create, staff)
	eg.PUT("/:id", api.update, staff)
	eg.POST("/:id/publish", api.publish, staff)
	eg.POST("/:id/archive", api.archive, staff)
}

// ExamDetailResponse carries an exam together with its assembled question
// list; questions are redacted for learners.
type ExamDetailResponse struct {
	exam.Exam
	Questions []question.Question `json:"questions"`
}

func (api *examApi) create(ctx echo.Context) error {
	var data exam.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	exm, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, exm)
}

func (api *examApi) query(ctx echo.Context) error {
	filter := new(exam.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []exam.Exam{})
	}
	filter.Clean()

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// learners only browse the published catalog
	if !(ctxUsr.IsTeacher() || ctxUsr.IsAdmin()) {
		filter.Status = exam.StatusPublished
	}

	exms, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	if exms == nil {
		exms = []exam.Exam{}
	}
	return ctx.JSON(http.StatusOK, exms)
}

func (api *examApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	exm, qs, err := api.svc.Assemble(ctx.Request().Context(), ctx.Param("id"), ctxUsr)
	if err != nil {
		return err
	}
	if qs == nil {
		qs = []question.Question{}
	}
	return ctx.JSON(http.StatusOK, ExamDetailResponse{Exam: exm, Questions: qs})
}

func (api *examApi) update(ctx echo.Context) error {
	var data exam.UpdateExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateExam")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	exm, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, exm)
}

func (api *examApi) publish(ctx echo.Context) error {
	exm, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, exm)
}

func (api *examApi) archive(ctx echo.Context) error {
	exm, err := api.svc.Archive(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, exm)
}
