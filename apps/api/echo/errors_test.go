package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/progress"
	"github.com/trezcool/lumina/core/reflection"
	testutil "github.com/trezcool/lumina/tests"
)

func Test_appHTTPErrorHandler(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	vErr := validate.Struct(progress.UnlockRequest{})
	require.IsType(t, validator.ValidationErrors{}, vErr)

	var shutdowns int
	handle := newAppHTTPErrorHandler(testutil.NewLogger(), translator, func() { shutdowns++ })

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "validator errors", err: vErr, wantCode: http.StatusBadRequest, wantBody: `{"code":"this field is required"}`},
		{name: "wrapped validator errors", err: errors.Wrap(vErr, "validating"), wantCode: http.StatusBadRequest, wantBody: `{"code":"this field is required"}`},
		{name: "domain sentinel", err: errors.Wrap(reflection.ErrModuleLocked, "submitting"), wantCode: http.StatusForbidden, wantBody: `{"error":"this module is locked"}`},
		{name: "throttled", err: progress.ErrTooManyAttempts, wantCode: http.StatusTooManyRequests, wantBody: `{"error":"too many unlock attempts, try again later"}`},
		{name: "core validation error", err: core.NewValidationError(progress.ErrNoAccessCode), wantCode: http.StatusBadRequest, wantBody: `{"error":"this course does not require an access code"}`},
		{name: "http error", err: errCourseLocked, wantCode: http.StatusForbidden, wantBody: `{"error":"course locked"}`},
		{name: "unknown error", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantBody: `{"error":"Internal Server Error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			ctx := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			assert.NotPanics(t, func() { handle(tt.err, ctx) })
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
	assert.Zero(t, shutdowns)
}
