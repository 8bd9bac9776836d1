package usecase

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/errors"
)

const DefaultFacultyName = "Faculty Member"

type directoryEntry struct {
	user    *entity.User
	expires time.Time
}

// Directory is the single source of user roles and display names. Profiles
// are cached for ttl; Invalidate drops one entry after a profile write.
type Directory struct {
	userRepo repository.UserRepository
	cache    *lru.Cache
	ttl      time.Duration
	now      func() time.Time
}

func NewDirectory(userRepo repository.UserRepository, size int, ttl time.Duration) (*Directory, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Directory{
		userRepo: userRepo,
		cache:    cache,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

func (d *Directory) Lookup(ctx context.Context, uid string) (*entity.User, error) {
	if v, ok := d.cache.Get(uid); ok {
		e := v.(directoryEntry)
		if d.ttl <= 0 || d.now().Before(e.expires) {
			u := *e.user
			return &u, nil
		}
		d.cache.Remove(uid)
	}

	user, err := d.userRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	stored := *user
	d.cache.Add(uid, directoryEntry{user: &stored, expires: d.now().Add(d.ttl)})
	return user, nil
}

// Role resolves uid's role. Unknown users get RoleStudent.
func (d *Directory) Role(ctx context.Context, uid string) (entity.Role, error) {
	user, err := d.Lookup(ctx, uid)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return entity.RoleStudent, nil
		}
		return "", err
	}
	return entity.ParseRole(string(user.Role)), nil
}

func (d *Directory) IsStaff(ctx context.Context, uid string) (bool, error) {
	role, err := d.Role(ctx, uid)
	if err != nil {
		return false, err
	}
	return role.IsStaff(), nil
}

// DisplayName returns the profile name, or fallback when it is missing or
// cannot be read.
func (d *Directory) DisplayName(ctx context.Context, uid, fallback string) string {
	user, err := d.Lookup(ctx, uid)
	if err != nil || user.DisplayName == "" {
		return fallback
	}
	return user.DisplayName
}

func (d *Directory) Invalidate(uid string) {
	d.cache.Remove(uid)
}
