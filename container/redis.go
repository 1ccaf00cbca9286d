package container

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/yusufsyaifudin/tagihan/config"
	"go.uber.org/multierr"
)

// newRedis connects and pings the journal redis in any of its three modes.
func newRedis(ctx context.Context, connInfo config.Redis) (redis.UniversalClient, error) {
	var redisClient redis.UniversalClient
	switch connInfo.Mode {
	case "single":
		redisClient = redis.NewClient(&redis.Options{
			Addr:     connInfo.Address[0],
			Username: connInfo.Username,
			Password: connInfo.Password,
			DB:       connInfo.DB,
		})

	case "sentinel":
		redisClient = redis.NewFailoverClient(&redis.FailoverOptions{
			SentinelAddrs: connInfo.Address,
			Username:      connInfo.Username,
			Password:      connInfo.Password,
			DB:            connInfo.DB,
			MasterName:    connInfo.MasterName,
		})

	case "cluster":
		// cluster mode is not support DB selection
		redisClient = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    connInfo.Address,
			Username: connInfo.Username,
			Password: connInfo.Password,
		})

	default:
		err := fmt.Errorf("unknown redis mode: %s", connInfo.Mode)
		return nil, err
	}

	err := redisClient.Ping(ctx).Err()
	if err != nil {
		err = fmt.Errorf("error ping redis %v: %w", connInfo.Address, err)
		return nil, multierr.Append(err, redisClient.Close())
	}

	return redisClient, nil
}
