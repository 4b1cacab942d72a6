package logger

import (
	"go.uber.org/zap"
)

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// ---- dominio ----

// AppID identifica la tenant app de la operación.
func AppID(v string) zap.Field { return zap.String("app_id", v) }

// Provider es "discord" o "steam".
func Provider(v string) zap.Field { return zap.String("provider", v) }

// UserID es el id numérico del usuario dentro de la app.
func UserID(v int64) zap.Field { return zap.Int64("user_id", v) }

// ErrorKind es el tipo de error público (NO_AUTH / SERVICE_ERROR).
func ErrorKind(v string) zap.Field { return zap.String("error_kind", v) }

// ---- sistema ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Layer(v string) zap.Field { return zap.String("layer", v) }
func Err(err error) zap.Field { return zap.Error(err) }

func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
