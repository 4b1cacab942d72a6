package auth

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/hellobroker/internal/flowstate"
	httperrors "github.com/dropDatabas3/hellobroker/internal/http/errors"
	svc "github.com/dropDatabas3/hellobroker/internal/http/services/auth"
	"github.com/dropDatabas3/hellobroker/internal/identity"
	jwtx "github.com/dropDatabas3/hellobroker/internal/jwt"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
	"github.com/dropDatabas3/hellobroker/internal/providers"
	"github.com/dropDatabas3/hellobroker/internal/redirect"
	"go.uber.org/zap"
)

// ─── Error Mapping ───

// noAuth son los errores que el cliente ve como 403 NO_AUTH: estado efímero
// vencido, token inválido, input mal formado o destino no permitido.
var noAuth = []error{
	svc.ErrInvalidApp,
	svc.ErrInvalidRequest,
	providers.ErrUnknownProvider,
	providers.ErrInvalidCallback,
	providers.ErrClaimVerificationFailed,
	redirect.ErrNotAllowed,
	flowstate.ErrFlowStateMissing,
	flowstate.ErrCodeMissing,
	flowstate.ErrSessionNotFound,
	identity.ErrUserNotFound,
	identity.ErrAccountUnlinked,
	jwtx.ErrTokenInvalid,
	jwtx.ErrUnknownApp,
}

// authError traduce un error de los services al AppError que ve el cliente.
func authError(err error) *httperrors.AppError {
	if errors.Is(err, svc.ErrMissingRefresh) {
		return httperrors.ErrMissingAuth.WithCause(err)
	}
	for _, target := range noAuth {
		if errors.Is(err, target) {
			return httperrors.ErrNoAuth.WithCause(err)
		}
	}
	return httperrors.ErrServiceError.WithCause(err)
}

// writeAuthError loguea la cadena completa y responde solo con el tipo.
func writeAuthError(w http.ResponseWriter, log *zap.Logger, msg string, err error) {
	appErr := authError(err)
	fields := []zap.Field{logger.ErrorKind(appErr.Type), logger.Status(appErr.HTTPStatus), logger.Err(err)}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Error(msg, fields...)
	} else {
		log.Debug(msg, fields...)
	}
	httperrors.WriteError(w, appErr)
}
