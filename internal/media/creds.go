package media

import (
	"log/slog"

	"github.com/alexjbarnes/media-sync/internal/state"
)

// CredentialSource supplies the current bearer token and handles forced
// logout when the server rejects it. The engine never inspects tokens;
// they are opaque strings attached to requests.
type CredentialSource interface {
	CurrentToken() string
	ForceLogout()
}

// StateCredentials is a CredentialSource backed by the state database's
// token cache.
type StateCredentials struct {
	store  *state.Store
	logger *slog.Logger
}

// NewStateCredentials creates a credential source over the given store.
func NewStateCredentials(store *state.Store, logger *slog.Logger) *StateCredentials {
	return &StateCredentials{
		store:  store,
		logger: logger,
	}
}

// CurrentToken returns the cached bearer token, or empty string when the
// client is not authenticated.
func (c *StateCredentials) CurrentToken() string {
	return c.store.Token()
}

// ForceLogout drops the cached token so no further requests are made
// with credentials the server has rejected.
func (c *StateCredentials) ForceLogout() {
	if err := c.store.ClearToken(); err != nil {
		c.logger.Warn("clearing rejected token", slog.String("error", err.Error()))
		return
	}

	c.logger.Warn("authentication expired, token cleared; sign in again to resume sync")
}
