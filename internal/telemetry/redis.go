package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/types"
)

const streamMaxLen = 10_000

// RedisPublisher appends each cycle record to a Redis stream.
type RedisPublisher struct {
	rdb    *redis.Client
	stream string
}

var _ interfaces.Publisher = (*RedisPublisher)(nil)

func NewRedisPublisher(addr, password, stream string) *RedisPublisher {
	return &RedisPublisher{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		stream: stream,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, res *types.StepResult) error {
	values, err := streamValues(res)
	if err != nil {
		return err
	}
	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// streamValues flattens the headline fields for stream consumers and
// carries the full record as JSON.
func streamValues(res *types.StepResult) (map[string]interface{}, error) {
	blob, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	v := map[string]interface{}{
		"cycle_id":    res.CycleID,
		"success":     res.Success,
		"message":     res.Message,
		"stop_reason": res.StopReason,
		"record":      string(blob),
	}
	if st := res.State; st != nil {
		v["symbol"] = st.Symbol
		v["price"] = st.CurrentPrice
		v["position"] = string(st.Position.Status)
		v["total_asset"] = st.Account.TotalAsset
		v["trading_stopped"] = st.TradingStopped
	}
	return v, nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
