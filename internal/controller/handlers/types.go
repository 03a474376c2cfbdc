package handlers

import (
	"github.com/h4rdev/batch_access_bot/internal/controller/state"
	"github.com/h4rdev/batch_access_bot/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд и сообщений
type Handlers struct {
	principals *service.PrincipalService
	sessions   *service.SessionService
	relay      *service.RelayService
	tokens     *service.TokenService
	grants     *service.GrantService
	channels   *service.ChannelService
	broadcast  *service.BroadcastService

	stateManager *state.Manager

	mandatoryChannelID   int64
	mandatoryChannelLink string
	contactAdminLink     string

	logger *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	principals *service.PrincipalService,
	sessions *service.SessionService,
	relay *service.RelayService,
	tokens *service.TokenService,
	grants *service.GrantService,
	channels *service.ChannelService,
	broadcast *service.BroadcastService,
	stateManager *state.Manager,
	mandatoryChannelID int64,
	mandatoryChannelLink string,
	contactAdminLink string,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		principals:           principals,
		sessions:             sessions,
		relay:                relay,
		tokens:               tokens,
		grants:               grants,
		channels:             channels,
		broadcast:            broadcast,
		stateManager:         stateManager,
		mandatoryChannelID:   mandatoryChannelID,
		mandatoryChannelLink: mandatoryChannelLink,
		contactAdminLink:     contactAdminLink,
		logger:               logger,
	}
}
