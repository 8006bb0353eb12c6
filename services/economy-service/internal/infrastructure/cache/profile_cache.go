package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
)

const (
	profileKeyPrefix = "profile:"
	versionKeyPrefix = "profile-version:"

	versionTTL = 24 * time.Hour
)

// ProfileCache puts a redis read-through cache in front of a ProfileStore.
// Only ReadProfile is served from redis; every write drops the cached copy
// after it commits and bumps a per-user version key. Redis failures fall
// back to the store.
type ProfileCache struct {
	repository.ProfileStore

	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewProfileCache(store repository.ProfileStore, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *ProfileCache {
	return &ProfileCache{ProfileStore: store, client: client, ttl: ttl, log: log}
}

func profileKey(userID string) string {
	return profileKeyPrefix + userID
}

func versionKey(userID string) string {
	return versionKeyPrefix + userID
}

func (c *ProfileCache) ReadProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	val, err := c.client.Get(ctx, profileKey(userID)).Bytes()
	if err == nil {
		var p domain.Profile
		if err := json.Unmarshal(val, &p); err == nil {
			return &p, nil
		}
		c.log.WithField("user_id", userID).Warn("dropping undecodable cached profile")
		c.invalidate(ctx, userID)
	} else if !errors.Is(err, redis.Nil) {
		c.log.WithError(err).Warn("profile cache read failed")
	}

	return c.fill(ctx, userID)
}

// fill reads userID from the store and caches it. The version key is watched
// across the store read, so a commit landing in between aborts the write.
func (c *ProfileCache) fill(ctx context.Context, userID string) (*domain.Profile, error) {
	var (
		p       *domain.Profile
		readErr error
	)
	err := c.client.Watch(ctx, func(rtx *redis.Tx) error {
		p, readErr = c.ProfileStore.ReadProfile(ctx, userID)
		if readErr != nil {
			return nil
		}
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, profileKey(userID), data, c.ttl)
			return nil
		})
		return err
	}, versionKey(userID))
	if readErr != nil {
		return nil, readErr
	}
	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr):
		c.log.WithField("user_id", userID).Debug("profile changed during cache fill, not cached")
	default:
		c.log.WithError(err).Warn("profile cache write failed")
	}
	if p == nil {
		// redis failed before the store was read
		return c.ProfileStore.ReadProfile(ctx, userID)
	}
	return p, nil
}

func (c *ProfileCache) CreateProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := c.ProfileStore.CreateProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, userID)
	return p, nil
}

func (c *ProfileCache) RunTransaction(ctx context.Context, userID string, fn func(tx repository.Tx) error) error {
	err := c.ProfileStore.RunTransaction(ctx, userID, fn)
	if err == nil {
		c.invalidate(ctx, userID)
	}
	return err
}

func (c *ProfileCache) invalidate(ctx context.Context, userID string) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(userID))
		pipe.Expire(ctx, versionKey(userID), versionTTL)
		pipe.Del(ctx, profileKey(userID))
		return nil
	})
	if err != nil {
		c.log.WithError(err).WithField("user_id", userID).Warn("profile cache invalidation failed")
	}
}
