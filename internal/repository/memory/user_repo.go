package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/repository"
)

type UserRepo struct {
	mu    sync.RWMutex
	users map[int64]domain.Profile
}

func NewUserRepo(profiles ...domain.Profile) *UserRepo {
	r := &UserRepo{users: make(map[int64]domain.Profile, len(profiles))}
	for _, p := range profiles {
		r.users[p.ID] = p
	}
	return r
}

// ParseProfiles reads a "1:alice,2:bob" list into profiles.
func ParseProfiles(s string) ([]domain.Profile, error) {
	var out []domain.Profile
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		idStr, name, ok := strings.Cut(item, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid user entry %q", item)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid user id in %q", item)
		}
		out = append(out, domain.Profile{ID: id, Username: strings.TrimSpace(name)})
	}
	return out, nil
}

func (r *UserRepo) Put(p domain.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[p.ID] = p
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

var _ repository.UserRepository = (*UserRepo)(nil)
