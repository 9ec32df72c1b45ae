package slackclient

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// userCache maps user ids to display names. The full user list is fetched
// once per ttl; a failed fetch falls back to raw ids until the next refresh.
type userCache struct {
	api    API
	ttl    time.Duration
	mu     sync.Mutex
	names  map[string]string
	loaded time.Time
}

func newUserCache(api API) *userCache {
	return &userCache{api: api, ttl: time.Hour}
}

func (uc *userCache) name(ctx context.Context, id string) string {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.names == nil || timeNow().Sub(uc.loaded) > uc.ttl {
		uc.load(ctx)
	}
	if n, ok := uc.names[id]; ok && n != "" {
		return n
	}
	return id
}

func (uc *userCache) load(ctx context.Context) {
	uc.names = map[string]string{}
	uc.loaded = timeNow()
	users, err := uc.api.GetUsersContext(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Slack user lookup failed, showing user ids")
		return
	}
	for _, u := range users {
		switch {
		case u.Profile.DisplayName != "":
			uc.names[u.ID] = u.Profile.DisplayName
		case u.RealName != "":
			uc.names[u.ID] = u.RealName
		default:
			uc.names[u.ID] = u.Name
		}
	}
	log.Debug().Int("users", len(users)).Msg("Slack user cache loaded")
}
