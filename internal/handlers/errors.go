package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ytakahashi/todo-app/internal/apperr"
	"github.com/ytakahashi/todo-app/internal/logging"
)

type errorItem struct {
	Msg string `json:"msg"`
}

type validationBody struct {
	Errors []errorItem `json:"errors"`
}

type messageBody struct {
	Msg     string `json:"msg"`
	Details string `json:"details,omitempty"`
}

func msgBody(msg string) messageBody {
	return messageBody{Msg: msg}
}

// newErrorHandler turns every error a handler returns into a JSON response.
// Validation errors list each problem; everything else carries a single msg.
func newErrorHandler(development bool, logger logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorResponse(err, development)
		if status >= http.StatusInternalServerError {
			logger.Error(c.Request().Context(), "request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err,
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error(c.Request().Context(), "failed to write error response", "error", werr)
		}
	}
}

func errorResponse(err error, development bool) (int, any) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
		return he.Code, msgBody(msg)
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Internal(err)
	}

	switch ae.Kind {
	case apperr.KindValidation:
		items := make([]errorItem, 0, len(ae.Details))
		for _, d := range ae.Details {
			items = append(items, errorItem{Msg: d})
		}
		if len(items) == 0 {
			items = append(items, errorItem{Msg: ae.Msg})
		}
		return ae.Kind.HTTPStatus(), validationBody{Errors: items}
	case apperr.KindInternal:
		body := msgBody("Server Error")
		if development && ae.Err != nil {
			body.Details = fmt.Sprint(ae.Err)
		}
		return http.StatusInternalServerError, body
	default:
		return ae.Kind.HTTPStatus(), msgBody(ae.Msg)
	}
}
