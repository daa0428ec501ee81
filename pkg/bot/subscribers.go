package bot

import (
	"context"
	"log"
	"sort"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v9"
)

const (
	subscribersKey = "bot;subscribers"
)

// Chats receiving notifications, optionally persisted in redis.
type subscribers struct {
	mx    sync.RWMutex
	chats map[int64]struct{}
	rdb   *redis.Client
}

func newSubscribers() *subscribers {
	return &subscribers{
		chats: make(map[int64]struct{}),
	}
}

func (s *subscribers) add(ctx context.Context, chatID int64) {
	s.mx.Lock()
	s.chats[chatID] = struct{}{}
	s.mx.Unlock()

	if s.rdb == nil {
		return
	}

	if status := s.rdb.SAdd(ctx, subscribersKey, chatID); status.Err() != nil {
		log.Printf("failed redis:sadd %s value %d, error %v\n", subscribersKey, chatID, status.Err())
	} else {
		log.Printf("success redis:sadd %s %d\n", subscribersKey, chatID)
	}
}

func (s *subscribers) remove(ctx context.Context, chatID int64) {
	s.mx.Lock()
	delete(s.chats, chatID)
	s.mx.Unlock()

	if s.rdb == nil {
		return
	}

	if status := s.rdb.SRem(ctx, subscribersKey, chatID); status.Err() != nil {
		log.Printf("failed redis:srem %s value %d, error %v\n", subscribersKey, chatID, status.Err())
	} else {
		log.Printf("success redis:srem %s %d\n", subscribersKey, chatID)
	}
}

// Sorted snapshot of subscribed chats.
func (s *subscribers) list() []int64 {
	s.mx.RLock()
	defer s.mx.RUnlock()

	res := make([]int64, 0, len(s.chats))
	for chatID := range s.chats {
		res = append(res, chatID)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })

	return res
}

// Loads persisted chats. Invoke only before bot service start.
func (s *subscribers) load(ctx context.Context) {
	if s.rdb == nil {
		return
	}

	status := s.rdb.SMembers(ctx, subscribersKey)
	values, err := status.Result()
	if err != nil {
		log.Printf("failed redis:smembers %s, error %v\n", subscribersKey, err)
		return
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	for _, raw := range values {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Printf("failed to parse chat id %s, error %v\n", raw, err)
			continue
		}
		s.chats[chatID] = struct{}{}
	}
}
