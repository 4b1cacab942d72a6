package errors

import (
	"fmt"
	"net/http"
)

// Tipos de error visibles al cliente. El conjunto es cerrado: cualquier otra
// falla interna se colapsa en SERVICE_ERROR.
const (
	TypeNoAuth       = "NO_AUTH"
	TypeServiceError = "SERVICE_ERROR"
)

// AppError es el error de la capa HTTP. Solo Type y HTTPStatus cruzan al
// cliente; Err queda para logs.
type AppError struct {
	Type       string
	HTTPStatus int
	Err        error
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s %d] %v", e.Type, e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("[%s %d]", e.Type, e.HTTPStatus)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error { return e.Err }

// New crea un nuevo AppError
func New(status int, typ string) *AppError {
	return &AppError{Type: typ, HTTPStatus: status}
}

// Wrap crea un AppError envolviendo un error existente
func Wrap(err error, status int, typ string) *AppError {
	return &AppError{Type: typ, HTTPStatus: status, Err: err}
}

// FromError convierte un error cualquiera en AppError.
// Lo que no sea AppError es un SERVICE_ERROR 500 que conserva la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrServiceError.WithCause(err)
}

// WithCause agrega el error original (causa)
// Devuelve una COPIA del error
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

var (
	// ErrNoAuth 403: state, código o token inválido/expirado.
	ErrNoAuth = &AppError{Type: TypeNoAuth, HTTPStatus: http.StatusForbidden}

	// ErrMissingAuth 401: falta la cookie de refresh.
	ErrMissingAuth = &AppError{Type: TypeNoAuth, HTTPStatus: http.StatusUnauthorized}

	// ErrServiceError 500: store caído, proveedor inalcanzable, firma, etc.
	ErrServiceError = &AppError{Type: TypeServiceError, HTTPStatus: http.StatusInternalServerError}

	// ErrRateLimited 429
	ErrRateLimited = &AppError{Type: TypeServiceError, HTTPStatus: http.StatusTooManyRequests}
)
