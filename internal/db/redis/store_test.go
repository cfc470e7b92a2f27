package redis

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/vecquiz/internal/db"
)

func newTestStore(c rueidis.Client) *Store { return &Store{client: c} }

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := newTestStore(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := newTestStore(c)
	err := s.Ping(context.Background())
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpPing {
		t.Fatalf("expected PING db.Error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause should be kept, got %v", err)
	}
}

func TestWaitForReady_RetriesUntilPong(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(errors.New("loading"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG"))),
	)

	s := newTestStore(c)
	if err := s.WaitForReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).
		MinTimes(1)

	s := newTestStore(c)
	err := s.WaitForReady(context.Background(), 120*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected timeout carrying the last ping error, got %v", err)
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addresses")
	}
}

// --- kv.go tests ---

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		reply   rueidis.RedisResult
		want    string
		wantErr error
	}{
		{"value", mock.Result(mock.RedisBlobString("session")), "session", nil},
		{"missing", mock.Result(mock.RedisNil()), "", db.ErrKeyNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mock.NewClient(gomock.NewController(t))
			c.EXPECT().Do(gomock.Any(), mock.Match("GET", "vecquiz:game:g1")).Return(tt.reply)

			got, err := newTestStore(c).Get(context.Background(), "vecquiz:game:g1")
			if !errors.Is(err, tt.wantErr) || string(got) != tt.want {
				t.Errorf("Get = %q, %v", got, err)
			}
		})
	}
}

func TestGet_Error(t *testing.T) {
	c := mock.NewClient(gomock.NewController(t))
	c.EXPECT().Do(gomock.Any(), gomock.Any()).Return(mock.ErrorResult(context.DeadlineExceeded))

	_, err := newTestStore(c).Get(context.Background(), "k")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpGet || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected GET db.Error, got %v", err)
	}
}

func TestSetWithTTL(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		cmd  []string
	}{
		{"millisecond expiry", 1500 * time.Millisecond, []string{"SET", "k", "v", "PX", "1500"}},
		{"no expiry", 0, []string{"SET", "k", "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mock.NewClient(gomock.NewController(t))
			c.EXPECT().Do(gomock.Any(), mock.Match(tt.cmd...)).Return(mock.Result(mock.RedisString("OK")))

			if err := newTestStore(c).SetWithTTL(context.Background(), "k", []byte("v"), tt.ttl); err != nil {
				t.Fatalf("SetWithTTL: %v", err)
			}
		})
	}
}

func TestSetWithTTL_Error(t *testing.T) {
	c := mock.NewClient(gomock.NewController(t))
	c.EXPECT().Do(gomock.Any(), gomock.Any()).Return(mock.Result(mock.RedisError("OOM command not allowed")))

	err := newTestStore(c).SetWithTTL(context.Background(), "k", []byte("v"), time.Minute)
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSet {
		t.Errorf("expected SET db.Error, got %v", err)
	}
}

func TestDel(t *testing.T) {
	c := mock.NewClient(gomock.NewController(t))
	c.EXPECT().Do(gomock.Any(), mock.Match("DEL", "vecquiz:game:g1")).Return(mock.Result(mock.RedisInt64(0)))

	if err := newTestStore(c).Del(context.Background(), "vecquiz:game:g1"); err != nil {
		t.Errorf("deleting a missing key should succeed: %v", err)
	}
}

func TestIncrByWithTTL(t *testing.T) {
	tests := []struct {
		name   string
		incr   rueidis.RedisResult
		expire rueidis.RedisResult
		want   int64
		wantOp string
	}{
		{
			name:   "first write starts ttl",
			incr:   mock.Result(mock.RedisInt64(5)),
			expire: mock.Result(mock.RedisInt64(1)),
			want:   5,
		},
		{
			name:   "ttl already running",
			incr:   mock.Result(mock.RedisInt64(12)),
			expire: mock.Result(mock.RedisInt64(0)),
			want:   12,
		},
		{
			name:   "incr fails",
			incr:   mock.Result(mock.RedisError("WRONGTYPE")),
			expire: mock.Result(mock.RedisInt64(0)),
			wantOp: db.OpIncrBy,
		},
		{
			name:   "expire fails",
			incr:   mock.Result(mock.RedisInt64(5)),
			expire: mock.ErrorResult(context.Canceled),
			want:   5,
			wantOp: db.OpExpire,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mock.NewClient(gomock.NewController(t))
			c.EXPECT().
				DoMulti(gomock.Any(),
					mock.Match("INCRBY", "budget", "5"),
					mock.Match("PEXPIRE", "budget", "60000", "NX"),
				).
				Return([]rueidis.RedisResult{tt.incr, tt.expire})

			n, err := newTestStore(c).IncrByWithTTL(context.Background(), "budget", 5, time.Minute)
			if n != tt.want {
				t.Errorf("value: got %d, want %d", n, tt.want)
			}
			var dbErr *db.Error
			switch {
			case tt.wantOp == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.wantOp != "" && (!errors.As(err, &dbErr) || dbErr.Op != tt.wantOp):
				t.Errorf("expected %s db.Error, got %v", tt.wantOp, err)
			}
		})
	}
}

// --- zset.go tests ---

func TestZAdd(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZADD", "board", "1.5", "alice")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := newTestStore(c)
	if err := s.ZAdd(context.Background(), "board", "alice", 1.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestZAddGT(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZADD", "board", "GT", "12", "alice")).
		Return(mock.Result(mock.RedisInt64(0)))

	s := newTestStore(c)
	if err := s.ZAddGT(context.Background(), "board", "alice", 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestZAddGT_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("ERR syntax error")))

	s := newTestStore(c)
	err := s.ZAddGT(context.Background(), "board", "alice", 12)
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpZAdd {
		t.Fatalf("expected ZADD db.Error, got %v", err)
	}
}

func TestZRem(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZREM", "active", "g1")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := newTestStore(c)
	if err := s.ZRem(context.Background(), "active", "g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestZRevRangeWithScores(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZRANGE", "board", "0", "9", "REV", "WITHSCORES")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisBlobString("alice"), mock.RedisBlobString("15"),
			mock.RedisBlobString("bob"), mock.RedisBlobString("7"),
		)))

	s := newTestStore(c)
	got, err := s.ZRevRangeWithScores(context.Background(), "board", 0, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []db.ScoredMember{{Member: "alice", Score: 15}, {Member: "bob", Score: 7}}
	if len(got) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("member %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestZRevRangeWithScores_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisArray()))

	s := newTestStore(c)
	got, err := s.ZRevRangeWithScores(context.Background(), "board", 0, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no members, got %v", got)
	}
}

func TestZScore(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZSCORE", "board", "alice")).
		Return(mock.Result(mock.RedisBlobString("9")))

	s := newTestStore(c)
	score, err := s.ZScore(context.Background(), "board", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 9 {
		t.Errorf("expected 9, got %v", score)
	}
}

func TestZScore_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZSCORE", "board", "nobody")).
		Return(mock.Result(mock.RedisNil()))

	s := newTestStore(c)
	if _, err := s.ZScore(context.Background(), "board", "nobody"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestZCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZCOUNT", "active", "100", "+inf")).
		Return(mock.Result(mock.RedisInt64(3)))

	s := newTestStore(c)
	n, err := s.ZCount(context.Background(), "active", 100, math.Inf(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
}

func TestZRemRangeByScore(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZREMRANGEBYSCORE", "active", "-inf", "99")).
		Return(mock.Result(mock.RedisInt64(2)))

	s := newTestStore(c)
	if err := s.ZRemRangeByScore(context.Background(), "active", math.Inf(-1), 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{15, "15"},
		{0.25, "0.25"},
		{-3, "-3"},
		{math.Inf(1), "+inf"},
		{math.Inf(-1), "-inf"},
	}
	for _, tc := range tests {
		if got := formatScore(tc.in); got != tc.want {
			t.Errorf("formatScore(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
