package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"library-room-booker/internal/logging"
	"library-room-booker/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	webpush *webpush.Options
	runs    Trigger
	log     *logging.Logger
}

// NewHandler creates a new API handler. runs may be nil, in which case run
// triggers answer 503.
func NewHandler(s store.Store, webpushOptions *webpush.Options, runs Trigger, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{
		store:   s,
		webpush: webpushOptions,
		runs:    runs,
		log:     log.With("api"),
	}
}
