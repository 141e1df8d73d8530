package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGeo implements Locator using Redis GEO commands.
type RedisGeo struct {
	client *redis.Client
	key    string
}

func NewRedisGeo(client *redis.Client, key string) *RedisGeo {
	return &RedisGeo{client: client, key: key}
}

func (r *RedisGeo) Upsert(ctx context.Context, id string, c Coord) error {
	if err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: c.Lon, Latitude: c.Lat, Name: id}).Err(); err != nil {
		return fmt.Errorf("geoadd %s: %w", id, err)
	}
	return r.client.HSet(ctx, MetaKey(id), "updated", time.Now().UTC().Format(time.RFC3339)).Err()
}

func (r *RedisGeo) Remove(ctx context.Context, id string) error {
	if err := r.client.ZRem(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("zrem %s: %w", id, err)
	}
	return r.client.Del(ctx, MetaKey(id)).Err()
}

func (r *RedisGeo) Within(ctx context.Context, center Coord, radiusKm float64, limit int) ([]string, error) {
	q := &redis.GeoRadiusQuery{Radius: radiusKm, Unit: "km", WithDist: true, Sort: "ASC"}
	if limit > 0 {
		q.Count = limit
	}
	res, err := r.client.GeoRadius(ctx, r.key, center.Lon, center.Lat, q).Result()
	if err != nil {
		return nil, fmt.Errorf("georadius: %w", err)
	}
	out := make([]string, 0, len(res))
	for _, g := range res {
		out = append(out, g.Name)
	}
	return out, nil
}

// MetaKey is the hash holding per-profile location metadata.
func MetaKey(id string) string { return "profile:geo:" + id }
