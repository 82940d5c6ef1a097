//go:build !devoverride

package middleware

import (
	"net/http"

	"github.com/dianedanzo/bear-app/internal/models"
)

// devOverride is compiled out of default builds.
func (g *TelegramAuth) devOverride(*http.Request) (models.Identity, *Rejection, bool) {
	return models.Identity{}, nil, false
}
