package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	cart:seq                 line id counter, never reset
//	cart:line:<id>           hash sid, pid, qty
//	cart:{<sid>}:lines       zset of line ids scored by id (insertion order)
//	cart:{<sid>}:products    hash pid -> line id
//
// Every mutation is a single Lua script, so Redis serializes them. Line hashes
// are addressed by global id and the scripts reach them through ARGV, so the
// store needs a single-node (or sentinel) Redis, not Redis Cluster.
const (
	seqKey     = "cart:seq"
	linePrefix = "cart:line:"
)

func linesKey(sid string) string    { return "cart:{" + sid + "}:lines" }
func productsKey(sid string) string { return "cart:{" + sid + "}:products" }
func lineKey(id int64) string       { return linePrefix + strconv.FormatInt(id, 10) }

// upsertScript replies {id, qty}, or {-1, qty} when the merge would exceed
// ARGV[5] and nothing was written.
var upsertScript = redis.NewScript(`
local id = redis.call('HGET', KEYS[3], ARGV[2])
if id then
  local cur = tonumber(redis.call('HGET', ARGV[4] .. id, 'qty')) or 0
  if cur + tonumber(ARGV[3]) > tonumber(ARGV[5]) then
    return {-1, cur}
  end
  local q = redis.call('HINCRBY', ARGV[4] .. id, 'qty', ARGV[3])
  return {tonumber(id), q}
end
id = redis.call('INCR', KEYS[1])
redis.call('HSET', ARGV[4] .. id, 'sid', ARGV[1], 'pid', ARGV[2], 'qty', ARGV[3])
redis.call('HSET', KEYS[3], ARGV[2], id)
redis.call('ZADD', KEYS[2], id, id)
return {id, tonumber(ARGV[3])}
`)

var setQtyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
redis.call('HSET', KEYS[1], 'qty', ARGV[1])
return redis.call('HMGET', KEYS[1], 'sid', 'pid', 'qty')
`)

var removeScript = redis.NewScript(`
local f = redis.call('HMGET', KEYS[1], 'sid', 'pid')
if not f[1] then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('ZREM', 'cart:{' .. f[1] .. '}:lines', ARGV[1])
redis.call('HDEL', 'cart:{' .. f[1] .. '}:products', f[2])
return 1
`)

var clearScript = redis.NewScript(`
local ids = redis.call('ZRANGE', KEYS[1], 0, -1)
for _, id in ipairs(ids) do
  redis.call('DEL', ARGV[1] .. id)
end
redis.call('DEL', KEYS[1], KEYS[2])
return #ids
`)

var listScript = redis.NewScript(`
local ids = redis.call('ZRANGE', KEYS[1], 0, -1)
local out = {}
for _, id in ipairs(ids) do
  local f = redis.call('HMGET', ARGV[1] .. id, 'pid', 'qty')
  if f[1] then
    table.insert(out, id)
    table.insert(out, f[1])
    table.insert(out, f[2])
  end
end
return out
`)

type RedisCartStore struct {
	rdb *redis.Client
}

func NewRedisCartStore(rdb *redis.Client) *RedisCartStore {
	return &RedisCartStore{rdb: rdb}
}

func (s *RedisCartStore) ListLineItems(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	vals, err := listScript.Run(ctx, s.rdb, []string{linesKey(sessionID)}, linePrefix).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out := make([]domain.LineItem, 0, len(vals)/3)
	for i := 0; i+2 < len(vals); i += 3 {
		li := domain.LineItem{SessionID: sessionID}
		if li.ID, err = strconv.ParseInt(vals[i], 10, 64); err != nil {
			return nil, err
		}
		if li.ProductID, err = strconv.ParseInt(vals[i+1], 10, 64); err != nil {
			return nil, err
		}
		if li.Quantity, err = strconv.Atoi(vals[i+2]); err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, nil
}

func (s *RedisCartStore) FindLineItem(ctx context.Context, id int64) (domain.LineItem, error) {
	vals, err := s.rdb.HMGet(ctx, lineKey(id), "sid", "pid", "qty").Result()
	if err != nil {
		return domain.LineItem{}, err
	}
	return parseLine(id, vals)
}

func (s *RedisCartStore) FindLineItemByProduct(ctx context.Context, sessionID string, productID int64) (domain.LineItem, error) {
	id, err := s.rdb.HGet(ctx, productsKey(sessionID), strconv.FormatInt(productID, 10)).Int64()
	if errors.Is(err, redis.Nil) {
		return domain.LineItem{}, fmt.Errorf("%w: no line for product %d", domain.ErrNotFound, productID)
	}
	if err != nil {
		return domain.LineItem{}, err
	}
	return s.FindLineItem(ctx, id)
}

func (s *RedisCartStore) UpsertLineItem(ctx context.Context, sessionID string, productID int64, delta int) (domain.LineItem, error) {
	if err := domain.ValidateQuantity(delta); err != nil {
		return domain.LineItem{}, err
	}
	res, err := upsertScript.Run(ctx, s.rdb,
		[]string{seqKey, linesKey(sessionID), productsKey(sessionID)},
		sessionID, productID, delta, linePrefix, domain.MaxQuantity,
	).Int64Slice()
	if err != nil {
		return domain.LineItem{}, err
	}
	if len(res) != 2 {
		return domain.LineItem{}, fmt.Errorf("upsert: unexpected reply %v", res)
	}
	if res[0] < 0 {
		return domain.LineItem{}, domain.ValidateMerge(int(res[1]), delta)
	}
	return domain.LineItem{ID: res[0], SessionID: sessionID, ProductID: productID, Quantity: int(res[1])}, nil
}

func (s *RedisCartStore) SetQuantity(ctx context.Context, id int64, quantity int) (domain.LineItem, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return domain.LineItem{}, err
	}
	vals, err := setQtyScript.Run(ctx, s.rdb, []string{lineKey(id)}, quantity).Slice()
	if errors.Is(err, redis.Nil) {
		return domain.LineItem{}, fmt.Errorf("%w: line item %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.LineItem{}, err
	}
	return parseLine(id, vals)
}

func (s *RedisCartStore) RemoveLineItem(ctx context.Context, id int64) (bool, error) {
	n, err := removeScript.Run(ctx, s.rdb, []string{lineKey(id)}, id).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisCartStore) ClearSession(ctx context.Context, sessionID string) error {
	return clearScript.Run(ctx, s.rdb,
		[]string{linesKey(sessionID), productsKey(sessionID)},
		linePrefix,
	).Err()
}

func (s *RedisCartStore) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

// parseLine decodes an HMGET sid, pid, qty reply.
func parseLine(id int64, vals []any) (domain.LineItem, error) {
	if len(vals) != 3 || vals[0] == nil {
		return domain.LineItem{}, fmt.Errorf("%w: line item %d", domain.ErrNotFound, id)
	}
	sid, _ := vals[0].(string)
	pid, err := strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("line %d: bad product id: %w", id, err)
	}
	qty, err := strconv.Atoi(fmt.Sprint(vals[2]))
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("line %d: bad quantity: %w", id, err)
	}
	return domain.LineItem{ID: id, SessionID: sid, ProductID: pid, Quantity: qty}, nil
}

var _ usecase.CartStore = (*RedisCartStore)(nil)
