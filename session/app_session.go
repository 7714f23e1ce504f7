package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoState = errors.New("session: no state")

// Step names what the bot is waiting for in a chat.
type Step string

const (
	StepAwaitName  Step = "await_name"
	StepAwaitPhoto Step = "await_photo"
)

type ChatState struct {
	Step   Step  `json:"step"`
	ToolID uint  `json:"toolId"`
	At     int64 `json:"at"`
}

// ChatStore keeps the conversational step of each chat.
type ChatStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewChatStore(rdb *redis.Client, ttl time.Duration) *ChatStore {
	return &ChatStore{rdb: rdb, ttl: ttl}
}

func chatKey(chatID int64) string { return fmt.Sprintf("tools:chat:%d", chatID) }

func (s *ChatStore) Set(ctx context.Context, chatID int64, st ChatState) error {
	if st.At == 0 {
		st.At = time.Now().Unix()
	}
	b, _ := json.Marshal(st)
	return s.rdb.Set(ctx, chatKey(chatID), b, s.ttl).Err()
}

func (s *ChatStore) Get(ctx context.Context, chatID int64) (*ChatState, error) {
	return getJSON[ChatState](ctx, s.rdb, chatKey(chatID))
}

func (s *ChatStore) Clear(ctx context.Context, chatID int64) error {
	return s.rdb.Del(ctx, chatKey(chatID)).Err()
}

// PendingReturn is the evidence an employee submitted for a return that an
// admin has not confirmed yet.
type PendingReturn struct {
	IssueID  uint   `json:"issueId"`
	ToolID   uint   `json:"toolId"`
	ChatID   int64  `json:"chatId"`
	PhotoRef string `json:"photoRef"`
}

type ReturnStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewReturnStore(rdb *redis.Client, ttl time.Duration) *ReturnStore {
	return &ReturnStore{rdb: rdb, ttl: ttl}
}

func returnKey(issueID uint) string { return "tools:return:" + strconv.FormatUint(uint64(issueID), 10) }

func (s *ReturnStore) Save(ctx context.Context, p PendingReturn) error {
	b, _ := json.Marshal(p)
	return s.rdb.Set(ctx, returnKey(p.IssueID), b, s.ttl).Err()
}

func (s *ReturnStore) Get(ctx context.Context, issueID uint) (*PendingReturn, error) {
	return getJSON[PendingReturn](ctx, s.rdb, returnKey(issueID))
}

// Take reads and removes the pending evidence in one step.
func (s *ReturnStore) Take(ctx context.Context, issueID uint) (*PendingReturn, error) {
	b, err := s.rdb.GetDel(ctx, returnKey(issueID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, err
	}
	var p PendingReturn
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ReturnStore) Delete(ctx context.Context, issueID uint) error {
	return s.rdb.Del(ctx, returnKey(issueID)).Err()
}

func getJSON[T any](ctx context.Context, rdb *redis.Client, key string) (*T, error) {
	b, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// AppSession is an authenticated admin login behind the app_session cookie.
type AppSession struct {
	AdminID   string `json:"uid"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

type AppSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAppSessionStore(rdb *redis.Client, ttl time.Duration) *AppSessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AppSessionStore{rdb: rdb, ttl: ttl}
}

func (s *AppSessionStore) TTL() time.Duration { return s.ttl }

func sessKey(id string) string          { return fmt.Sprintf("tools:sess:%s", id) }
func adminSetKey(adminID string) string { return fmt.Sprintf("tools:admin_sessions:%s", adminID) }

func (s *AppSessionStore) Create(ctx context.Context, id, adminID string) error {
	now := time.Now()
	b, _ := json.Marshal(AppSession{
		AdminID:   adminID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessKey(id), b, s.ttl)
	pipe.SAdd(ctx, adminSetKey(adminID), id)
	pipe.Expire(ctx, adminSetKey(adminID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *AppSessionStore) Get(ctx context.Context, id string) (*AppSession, error) {
	return getJSON[AppSession](ctx, s.rdb, sessKey(id))
}

func (s *AppSessionStore) Delete(ctx context.Context, id string) error {
	as, _ := s.Get(ctx, id)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessKey(id))
	if as != nil {
		pipe.SRem(ctx, adminSetKey(as.AdminID), id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAll drops every session of one admin.
func (s *AppSessionStore) RevokeAll(ctx context.Context, adminID string) error {
	ids, err := s.rdb.SMembers(ctx, adminSetKey(adminID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, sessKey(sid))
	}
	pipe.Del(ctx, adminSetKey(adminID))
	_, err = pipe.Exec(ctx)
	return err
}

// LoginCodes are one-time codes the bot sends to an admin chat; redeeming
// one proves control of that chat.
type LoginCodes struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLoginCodes(rdb *redis.Client, ttl time.Duration) *LoginCodes {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LoginCodes{rdb: rdb, ttl: ttl}
}

func (l *LoginCodes) TTL() time.Duration { return l.ttl }

func loginKey(adminID string) string { return fmt.Sprintf("tools:login:%s", adminID) }

// Issue replaces any earlier code of the admin.
func (l *LoginCodes) Issue(ctx context.Context, adminID string) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", binary.BigEndian.Uint32(b)%1000000)
	if err := l.rdb.Set(ctx, loginKey(adminID), code, l.ttl).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Redeem consumes the admin's code. Any attempt burns it.
func (l *LoginCodes) Redeem(ctx context.Context, adminID, code string) (bool, error) {
	want, err := l.rdb.GetDel(ctx, loginKey(adminID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return code != "" && subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1, nil
}
