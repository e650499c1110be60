package handler

import (
	"net/http"

	"aws-examples-api/internal/auth"
	"aws-examples-api/internal/domain"
	"aws-examples-api/internal/observability/logger"

	"go.uber.org/zap"
)

// DebugHandler provides debug endpoints for development
type DebugHandler struct {
	appEnv string
}

// NewDebugHandler creates a new debug handler. An empty appEnv is treated
// as production.
func NewDebugHandler(appEnv string) *DebugHandler {
	if appEnv == "" {
		appEnv = "production"
	}
	return &DebugHandler{appEnv: appEnv}
}

func (h *DebugHandler) enabled() bool {
	return h.appEnv == "dev" || h.appEnv == "development"
}

// GetIdentity returns the extraction result for the current request,
// including why an identity was rejected.
// Only available in development mode (APP_ENV=dev)
// GET /debug/identity
func (h *DebugHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	if !h.enabled() {
		log.Warn(ctx, "debug endpoint accessed in non-dev environment",
			logger.Module("debug"),
			logger.Action("identity"),
			zap.String("app_env", h.appEnv),
		)
		http.NotFound(w, r)
		return
	}

	result := auth.FromContext(ctx)

	log.Info(ctx, "debug identity endpoint accessed",
		logger.Module("debug"),
		logger.Action("identity"),
		zap.String("outcome", string(result.Outcome())),
		zap.String("reason", string(result.Reason)),
	)

	claims := map[string]any(result.Claims)
	if claims == nil {
		claims = map[string]any{}
	}

	writeJSON(w, http.StatusOK, domain.IdentityResponse{
		Outcome:  string(result.Outcome()),
		Verified: result.Verified,
		KeyID:    result.KeyID,
		Reason:   string(result.Reason),
		Subject:  result.Subject(),
		Claims:   claims,
	})
}
