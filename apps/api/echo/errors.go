package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/announcement"
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/forum"
	"github.com/trezcool/lumina/core/progress"
	"github.com/trezcool/lumina/core/reflection"
	"github.com/trezcool/lumina/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errCourseLocked         = echo.NewHTTPError(http.StatusForbidden, "course locked")
	errModuleLocked         = echo.NewHTTPError(http.StatusForbidden, "module locked")
)

// domainStatuses maps the domain sentinel errors to their HTTP status.
var domainStatuses = []struct {
	err    error
	status int
}{
	{user.ErrNotFound, http.StatusNotFound},
	{course.ErrNotFound, http.StatusNotFound},
	{course.ErrModuleNotFound, http.StatusNotFound},
	{progress.ErrNotFound, http.StatusNotFound},
	{forum.ErrNotFound, http.StatusNotFound},
	{forum.ErrReplyNotFound, http.StatusNotFound},
	{announcement.ErrNotFound, http.StatusNotFound},
	{forum.ErrForbidden, http.StatusForbidden},
	{reflection.ErrCourseLocked, http.StatusForbidden},
	{reflection.ErrModuleLocked, http.StatusForbidden},
	{reflection.ErrModuleCompleted, http.StatusConflict},
	{reflection.ErrSubmissionInFlight, http.StatusConflict},
	{progress.ErrTooManyAttempts, http.StatusTooManyRequests},
}

// domainStatus compares by identity, so causes of unhashable types (validator.ValidationErrors) are safe.
func domainStatus(cause error) (int, bool) {
	for _, ds := range domainStatuses {
		if cause == ds.err {
			return ds.status, true
		}
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if status, ok := domainStatus(cause); ok {
				code = status
				message = cause.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if usr, uErr := getContextUser(ctx); uErr == nil {
				args = append(args, usr)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
