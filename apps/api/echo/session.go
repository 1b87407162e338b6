package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/fluentify/backend/core/question"
	"github.com/fluentify/backend/core/session"
	"github.com/fluentify/backend/core/user"
)

type sessionApi struct {
	svc    *session.Service
	usrSvc user.Service
}

func registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *session.Service, usrSvc user.Service) {
	api := sessionApi{svc: svc, usrSvc: usrSvc}

	g.POST("/exams/:id/sessions", api.start, jwt)

	sg := g.Group("/sessions", jwt)
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id/answers", api.recordAnswer)
	sg.POST("/:id/submit", api.submit)
	sg.GET("/:id/results", api.results)

	// staff endpoints; per-route middleware so the GET list route stays reachable
	staff := staffMiddleware()
	sg.POST("/:id/answers/:qid/grade", api.gradeAnswer, staff)
	sg.PUT("/:id/feedback", api.setFeedback, staff)
}

// StartSessionResponse carries the new session and the redacted question list
// the learner will answer.
type StartSessionResponse struct {
	session.Session
	Questions []question.Question `json:"questions"`
}

func (api *sessionApi) start(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	s, qs, err := api.svc.Start(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	if qs == nil {
		qs = []question.Question{}
	}
	return ctx.JSON(http.StatusCreated, StartSessionResponse{Session: s, Questions: qs})
}

func (api *sessionApi) query(ctx echo.Context) error {
	filter := new(session.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []session.Session{})
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sessions, err := api.svc.Filter(ctx.Request().Context(), ctxUsr, *filter)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	s, err := api.svc.Get(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *sessionApi) recordAnswer(ctx echo.Context) error {
	var data session.NewAnswer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnswer")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	a, err := api.svc.RecordAnswer(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *sessionApi) submit(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Submit(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *sessionApi) results(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Results(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *sessionApi) gradeAnswer(ctx echo.Context) error {
	var data session.GradeInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.GradeAnswer(ctx.Request().Context(), ctxUsr, ctx.Param("id"), ctx.Param("qid"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *sessionApi) setFeedback(ctx echo.Context) error {
	var data session.FeedbackInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FeedbackInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	s, err := api.svc.SetGeneralFeedback(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}
