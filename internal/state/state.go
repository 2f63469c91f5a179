package state

import (
	"github.com/nomiwang10/InkRush/internal/config"
	"github.com/nomiwang10/InkRush/internal/service"
)

type AppState struct {
	Cfg        *config.AppConfig
	SessionSvc *service.SessionService
}

func NewAppState(
	cfg *config.AppConfig,
	sessionSvc *service.SessionService,
) *AppState {
	return &AppState{
		Cfg:        cfg,
		SessionSvc: sessionSvc,
	}
}
