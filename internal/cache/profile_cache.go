package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/repository"
)

const profileKeyPrefix = "chat:profile:"

// ProfileCache fronts a UserRepository with a read-through cache. Cache
// failures fall back to the directory and are only logged.
type ProfileCache struct {
	next   repository.UserRepository
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewProfileCache(next repository.UserRepository, c Cache, ttl time.Duration, logger *slog.Logger) *ProfileCache {
	return &ProfileCache{next: next, cache: c, ttl: ttl, logger: logger}
}

func profileKey(id int64) string {
	return profileKeyPrefix + strconv.FormatInt(id, 10)
}

func (p *ProfileCache) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	key := profileKey(id)

	raw, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		var profile domain.Profile
		if jerr := json.Unmarshal([]byte(raw), &profile); jerr == nil {
			return &profile, nil
		}
		p.logger.Warn("dropping corrupt profile cache entry", "key", key)
		_, _ = p.cache.Del(ctx, key)
	case !errors.Is(err, ErrMiss):
		p.logger.Warn("profile cache read failed", "key", key, "error", err)
	}

	profile, err := p.next.GetByID(ctx, id)
	if err != nil || profile == nil {
		return profile, err
	}

	if b, err := json.Marshal(profile); err == nil {
		if err := p.cache.Set(ctx, key, string(b), p.ttl); err != nil {
			p.logger.Warn("profile cache write failed", "key", key, "error", err)
		}
	}
	return profile, nil
}

var _ repository.UserRepository = (*ProfileCache)(nil)
