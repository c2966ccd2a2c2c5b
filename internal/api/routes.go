package api

import (
	"net/http"

	"github.com/JaimeStill/relay/internal/config"
	"github.com/JaimeStill/relay/internal/triage"
	"github.com/JaimeStill/relay/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	routes.Register(
		mux,
		triage.NewHandler(domain.Triage).Routes(),
		domain.Threads.Handler(cfg.Triage.StaleAgeDuration()).Routes(),
		domain.Messages.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Events.Handler().Routes(),
		domain.Macros.Handler().Routes(),
	)
}
