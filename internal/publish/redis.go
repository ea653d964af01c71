package publish

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher over Redis Pub/Sub so dashboards on
// other hosts can follow a long-running search.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(url string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisPublisher{rdb: redis.NewClient(opt)}, nil
}

func (p *RedisPublisher) Publish(instance string, evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, _ := json.Marshal(evt)
	_ = p.rdb.Publish(ctx, chanName(instance), data).Err()
}

// Subscribe follows best-solution events for an instance. The channel
// closes when the connection drops.
func (p *RedisPublisher) Subscribe(instance string) chan Event {
	ch := make(chan Event, 16)
	ctx := context.Background()
	ps := p.rdb.Subscribe(ctx, chanName(instance))
	// initial consume to ensure subscription
	_, _ = ps.Receive(ctx)
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
				select {
				case ch <- evt:
				default:
				}
			}
		}
	}()
	return ch
}

func (p *RedisPublisher) Close() error { return p.rdb.Close() }

func chanName(instance string) string { return "vrp:best:" + instance }
