package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	jwtx "github.com/dropDatabas3/hellobroker/internal/jwt"
	"github.com/dropDatabas3/hellobroker/internal/redirect"
	"github.com/dropDatabas3/hellobroker/internal/security/secretbox"
	"github.com/google/uuid"
)

// MainAppName es la app que crea `init` si no existe ninguna.
const MainAppName = "MAIN"

// AppProvisionConfig holds configuration for app provisioning.
type AppProvisionConfig struct {
	Apps repository.AppRepository
	Box  *secretbox.Box
	Out  io.Writer // nil = silencioso
}

// CreateApp registra una app nueva con un par Ed25519 propio.
// La privada se sella con el id de la app como scope, así que el id se
// genera acá y no en el repositorio.
func CreateApp(ctx context.Context, cfg AppProvisionConfig, name string, redirects ...string) (*repository.TenantApp, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("app name cannot be empty")
	}
	for _, uri := range redirects {
		if err := redirect.ValidatePattern(uri); err != nil {
			return nil, err
		}
	}

	privPEM, pubPEM, err := jwtx.GenerateEd25519PEM()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}

	id := uuid.New()
	sealed, err := cfg.Box.Seal(id.String(), privPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to seal private key: %w", err)
	}

	app, err := cfg.Apps.Create(ctx, repository.CreateAppInput{
		ID:               id,
		Name:             name,
		PublicKeyPEM:     pubPEM,
		PrivateKeySealed: sealed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create app %q: %w", name, err)
	}

	for _, uri := range redirects {
		if err := cfg.Apps.AddRedirectURI(ctx, app.ID, uri); err != nil {
			return nil, fmt.Errorf("failed to allow redirect %q: %w", uri, err)
		}
	}

	printf(cfg.Out, "📝 App created: %s\n", app.Name)
	printf(cfg.Out, "   ID: %s\n", app.ID)
	printf(cfg.Out, "   Public key:\n%s\n", app.PublicKeyPEM)
	return app, nil
}

// AllowRedirect agrega un patrón al allowlist de la app.
// Un patrón ya registrado no es error.
func AllowRedirect(ctx context.Context, cfg AppProvisionConfig, appID uuid.UUID, pattern string) error {
	if err := redirect.ValidatePattern(pattern); err != nil {
		return err
	}
	if _, err := cfg.Apps.GetByID(ctx, appID); err != nil {
		return fmt.Errorf("app %s: %w", appID, err)
	}
	err := cfg.Apps.AddRedirectURI(ctx, appID, pattern)
	if repository.IsConflict(err) {
		printf(cfg.Out, "✅ %s already allowed for %s\n", pattern, appID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to allow redirect: %w", err)
	}
	printf(cfg.Out, "✅ %s allowed for %s\n", pattern, appID)
	return nil
}

// EnsureMainApp crea la app MAIN si todavía no existe.
// Devuelve la app existente (created=false) o la nueva.
func EnsureMainApp(ctx context.Context, cfg AppProvisionConfig) (app *repository.TenantApp, created bool, err error) {
	apps, err := cfg.Apps.List(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list apps: %w", err)
	}
	for i := range apps {
		if apps[i].Name == MainAppName {
			printf(cfg.Out, "✅ %s app detected (%s). Skipping bootstrap.\n", MainAppName, apps[i].ID)
			return &apps[i], false, nil
		}
	}
	app, err = CreateApp(ctx, cfg, MainAppName)
	if err != nil {
		return nil, false, err
	}
	return app, true, nil
}

func printf(w io.Writer, format string, args ...any) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, format, args...)
}
