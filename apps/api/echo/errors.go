package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/apps/gateway"
	"github.com/trezcool/masomo/core"
)

var kindCodes = map[string]int{
	core.KindValidation: http.StatusBadRequest,
	core.KindNotFound:   http.StatusNotFound,
	core.KindConflict:   http.StatusConflict,
	core.KindInternal:   http.StatusInternalServerError,
}

func httpErrorKind(code int) string {
	switch code {
	case http.StatusBadRequest:
		return core.KindValidation
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return core.KindNotFound
	case http.StatusConflict:
		return core.KindConflict
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	}
	if code < http.StatusInternalServerError {
		return core.KindValidation
	}
	return core.KindInternal
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler rendering every error as the outline
// error envelope; internal failures are logged by the gateway.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code int
			resp gateway.ErrorResponse
		)

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				origErr = echo.NewHTTPError(http.StatusUnauthorized, origErr.Message)
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			resp = gateway.ErrorResponse{Status: gateway.StatusError, Kind: httpErrorKind(code)}
			if msg, ok := origErr.Message.(string); ok {
				resp.Message = msg
			} else {
				resp.Message = http.StatusText(code)
			}
		default:
			resp = gateway.NewErrorResponse(err)
			code = kindCodes[resp.Kind]
			if resp.Kind == core.KindInternal {
				if ctx.Echo().Debug {
					resp.Message = err.Error()
				}
				// shutting down...
				if core.IsShutdown(err) {
					logger.Error("shutdown requested", errors.Wrap(err, ctx.Path()))
					signalShutdown()
				}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
