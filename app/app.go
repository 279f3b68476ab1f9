package app

import (
	"github.com/go-chi/oauth"

	"github.com/acordova/formbox/config"
	"github.com/acordova/formbox/media"
	"github.com/acordova/formbox/store"
)

type App struct {
	*store.Store
	*oauth.BearerServer
	config.Config
	Media media.Store
}
