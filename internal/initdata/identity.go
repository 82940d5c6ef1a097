package initdata

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/dianedanzo/bear-app/internal/models"
)

var ErrInvalidUser = errors.New("initdata: invalid user")

type platformUser struct {
	ID        json.Number `json:"id"`
	Username  string      `json:"username"`
	FirstName string      `json:"first_name"`
}

// ResolveIdentity extracts the caller from the verified user field. The id
// is kept as a decimal string so it never passes through a float.
func ResolveIdentity(fields Fields) (models.Identity, error) {
	raw, ok := fields["user"]
	if !ok || raw == "" {
		return models.Identity{}, ErrInvalidUser
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var u platformUser
	if err := dec.Decode(&u); err != nil {
		return models.Identity{}, ErrInvalidUser
	}
	id, err := strconv.ParseInt(u.ID.String(), 10, 64)
	if err != nil || id <= 0 {
		return models.Identity{}, ErrInvalidUser
	}

	name := strings.TrimSpace(u.Username)
	if name == "" {
		name = strings.TrimSpace(u.FirstName)
	}
	if name == "" {
		name = models.DefaultDisplayName
	}
	return models.Identity{ID: strconv.FormatInt(id, 10), DisplayName: name}, nil
}
