package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tallybridge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const lockKeyPrefix = "tallybridge:scheduler:"

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// JobLocker serialises a job across replicas sharing one Tally instance.
type JobLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

type lockerResult struct {
	fx.Out

	Locker JobLocker
}

// ProvideLocker returns a redis backed locker when REDIS_ADDR is set.
// Without it every replica runs every job.
func ProvideLocker(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) lockerResult {
	if cfg.RedisAddr == "" {
		return lockerResult{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable, scheduler locks will fail open", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return lockerResult{Locker: NewLocker(client)}
}

// acquire takes the job lock. ok is false when another replica holds it.
// Lock errors fail open so a redis outage does not stall the jobs.
func (s *Scheduler) acquire(ctx context.Context, job string, ttl time.Duration) (release func(), ok bool) {
	if s.locker == nil {
		return func() {}, true
	}

	key := lockKeyPrefix + job
	token, acquired, err := s.locker.TryLock(ctx, key, ttl)
	if err != nil {
		s.logger(ctx).Warn("scheduler lock failed", zap.String("job", job), zap.Error(err))
		return func() {}, true
	}
	if !acquired {
		return nil, false
	}

	return func() {
		if err := s.locker.Release(context.Background(), key, token); err != nil {
			s.logger(ctx).Warn("scheduler lock release failed", zap.String("job", job), zap.Error(err))
		}
	}, true
}
