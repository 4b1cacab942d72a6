// Package audit emite eventos de seguridad del broker en un logger dedicado
// ("audit"), separados del log operativo para poder rutearlos aparte.
package audit

import (
	"context"

	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
	"go.uber.org/zap"
)

// Event identifica el tipo de evento auditado.
type Event string

const (
	LoginSucceeded  Event = "login.succeeded"
	LoginRejected   Event = "login.rejected"
	TokensIssued    Event = "tokens.issued"
	SessionRotated  Event = "session.rotated"
	SessionRevoked  Event = "session.revoked"
	RefreshRejected Event = "session.refresh_rejected"
)

// Log escribe ev con los campos dados. Nunca incluir tokens ni códigos.
func Log(ctx context.Context, ev Event, fields ...zap.Field) {
	logger.From(ctx).Named("audit").Info(string(ev), append(fields, zap.String("event", string(ev)))...)
}
