package cascade

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/cache-cascade/internal/testutil"
	"github.com/Sternrassler/cache-cascade/pkg/backend"
	"github.com/Sternrassler/cache-cascade/pkg/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parisQuestion = "capital of France?"

// setupTestRedis starts an in-memory Redis for unit tests.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
	})

	return mr, client
}

// newTestService builds a service over miniredis with a counting backend.
func newTestService(t *testing.T, modify func(*Config)) (*Service, *testutil.CountingBackend, *miniredis.Miniredis) {
	t.Helper()

	mr, client := setupTestRedis(t)
	b := testutil.NewCountingBackend(map[string]string{parisQuestion: "Paris"})

	cfg := DefaultConfig(b)
	cfg.Store = cache.NewRedisStore(client)
	cfg.FastTierCapacity = 100
	cfg.SharedTierTTL = time.Hour
	if modify != nil {
		modify(&cfg)
	}

	svc, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	return svc, b, mr
}

// flakyStore fails selected operations of an otherwise working store.
type flakyStore struct {
	cache.SharedStore
	getErr error
	setErr error
	delErr error
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.SharedStore.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.SharedStore.Set(ctx, key, value, ttl)
}

func (s *flakyStore) DeleteMatching(ctx context.Context, pattern string) error {
	if s.delErr != nil {
		return s.delErr
	}
	return s.SharedStore.DeleteMatching(ctx, pattern)
}

func TestNew_Validation(t *testing.T) {
	b := testutil.NewCountingBackend(nil)
	store := &flakyStore{}

	tests := []struct {
		name     string
		config   Config
		errorMsg string
	}{
		{
			name:   "valid config",
			config: Config{Store: store, FastTierCapacity: 10, Backend: b},
		},
		{
			name:     "zero capacity",
			config:   Config{Store: store, FastTierCapacity: 0, Backend: b},
			errorMsg: "fast tier capacity must be > 0",
		},
		{
			name:     "negative ttl",
			config:   Config{Store: store, FastTierCapacity: 10, SharedTierTTL: -time.Second, Backend: b},
			errorMsg: "shared tier ttl must be >= 0",
		},
		{
			name:     "negative backend timeout",
			config:   Config{Store: store, FastTierCapacity: 10, BackendTimeout: -time.Second, Backend: b},
			errorMsg: "backend timeout must be >= 0",
		},
		{
			name:     "nil backend",
			config:   Config{Store: store, FastTierCapacity: 10},
			errorMsg: "backend is required",
		},
		{
			name:     "no store or endpoint",
			config:   Config{FastTierCapacity: 10, Backend: b},
			errorMsg: "shared tier endpoint or store is required",
		},
		{
			name:     "malformed endpoint",
			config:   Config{SharedTierEndpoint: "redis://:bad:port/x", FastTierCapacity: 10, Backend: b},
			errorMsg: "parse shared tier endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := New(tt.config)
			if tt.errorMsg == "" {
				require.NoError(t, err)
				require.NotNil(t, svc)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestNew_DialsEndpoint(t *testing.T) {
	mr := miniredis.RunT(t)
	b := testutil.NewCountingBackend(nil)

	for _, endpoint := range []string{"redis://" + mr.Addr() + "/0", mr.Addr()} {
		cfg := DefaultConfig(b)
		cfg.SharedTierEndpoint = endpoint

		svc, err := New(cfg)
		require.NoError(t, err, endpoint)
		require.NoError(t, svc.Ping(context.Background()))

		_, err = svc.Predict(context.Background(), []byte("x"))
		require.NoError(t, err)
		require.NoError(t, svc.Close())
	}

	assert.Len(t, mr.Keys(), 1)
}

func TestNew_BackendTag(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	entry, err := svc.Predict(context.Background(), []byte("q"))
	require.NoError(t, err)
	assert.Equal(t, "counting-backend", entry.Metadata.BackendTag)

	svc, _, _ = newTestService(t, func(c *Config) {
		c.Backend = backend.Func(func(_ context.Context, in []byte) ([]byte, error) { return in, nil })
	})
	entry, err = svc.Predict(context.Background(), []byte("q"))
	require.NoError(t, err)
	assert.Equal(t, defaultBackendTag, entry.Metadata.BackendTag)

	svc, _, _ = newTestService(t, func(c *Config) { c.BackendTag = "gpt-x" })
	entry, err = svc.Predict(context.Background(), []byte("q"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-x", entry.Metadata.BackendTag)
}

// TestPredict_ParisScenario walks the miss, hit, clear, miss sequence.
func TestPredict_ParisScenario(t *testing.T) {
	svc, b, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)
	assert.Equal(t, "Paris", string(first.Value))
	assert.False(t, first.Metadata.Cached)
	assert.Equal(t, cache.LevelNone, first.Metadata.Level)

	second, err := svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)
	assert.Equal(t, "Paris", string(second.Value))
	assert.True(t, second.Metadata.Cached)
	assert.Equal(t, cache.LevelFastTier, second.Metadata.Level)
	assert.Equal(t, 1, b.Calls())

	require.NoError(t, svc.ClearCaches(ctx))

	third, err := svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)
	assert.Equal(t, "Paris", string(third.Value))
	assert.False(t, third.Metadata.Cached)
	assert.Equal(t, 2, b.Calls())

	snap := svc.CacheStats()
	assert.Equal(t, uint64(3), snap.TotalRequests)
	assert.Equal(t, uint64(1), snap.FastTierHits)
	assert.Equal(t, uint64(0), snap.SharedTierHits)
	assert.Equal(t, uint64(2), snap.Misses)
}

func TestPredict_StoresInBothTiers(t *testing.T) {
	svc, _, mr := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)

	key := svc.Keys().Key([]byte(parisQuestion))
	assert.True(t, mr.Exists(key.String()))
	assert.Equal(t, time.Hour, mr.TTL(key.String()))

	stored, ok := svc.FastTier().Peek(key)
	require.True(t, ok)
	assert.False(t, stored.Metadata.Cached, "stored entry must not carry lookup metadata")
}

func TestPredict_SharedTierPromotion(t *testing.T) {
	svc, b, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)

	// drop L1 only; L2 still holds the entry
	svc.FastTier().Clear()

	entry, err := svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)
	assert.True(t, entry.Metadata.Cached)
	assert.Equal(t, cache.LevelSharedTier, entry.Metadata.Level)
	assert.Equal(t, "Paris", string(entry.Value))
	assert.Equal(t, "counting-backend", entry.Metadata.BackendTag)

	entry, err = svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)
	assert.Equal(t, cache.LevelFastTier, entry.Metadata.Level)

	assert.Equal(t, 1, b.Calls())
	snap := svc.CacheStats()
	assert.Equal(t, uint64(1), snap.SharedTierHits)
	assert.Equal(t, uint64(1), snap.FastTierHits)
}

func TestPredict_SharedAcrossServices(t *testing.T) {
	_, client := setupTestRedis(t)

	newSvc := func(b backend.Backend) *Service {
		cfg := DefaultConfig(b)
		cfg.Store = cache.NewRedisStore(client)
		svc, err := New(cfg)
		require.NoError(t, err)
		return svc
	}

	b1 := testutil.NewCountingBackend(nil)
	b2 := testutil.NewCountingBackend(nil)
	svc1, svc2 := newSvc(b1), newSvc(b2)

	_, err := svc1.Predict(context.Background(), []byte("shared"))
	require.NoError(t, err)

	entry, err := svc2.Predict(context.Background(), []byte("shared"))
	require.NoError(t, err)
	assert.Equal(t, cache.LevelSharedTier, entry.Metadata.Level)
	assert.Equal(t, 0, b2.Calls())
}

func TestPredict_BackendFailure(t *testing.T) {
	svc, b, mr := newTestService(t, nil)
	ctx := context.Background()

	cause := errors.New("model overloaded")
	b.Fail("broken", cause)

	entry, err := svc.Predict(ctx, []byte("broken"))
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.ErrorIs(t, err, ErrBackendFailed)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, 0, svc.FastTier().Len())
	assert.False(t, mr.Exists(svc.Keys().Key([]byte("broken")).String()))

	snap := svc.CacheStats()
	assert.Equal(t, uint64(1), snap.TotalRequests)
	assert.Equal(t, uint64(1), snap.Misses)

	// failures are not cached, the next call retries the backend
	b.Fail("broken", nil)
	entry, err = svc.Predict(ctx, []byte("broken"))
	require.NoError(t, err)
	assert.False(t, entry.Metadata.Cached)
	assert.Equal(t, 2, b.Calls())
}

func TestPredict_NilBackendOutput(t *testing.T) {
	svc, _, _ := newTestService(t, func(c *Config) {
		c.Backend = backend.Func(func(context.Context, []byte) ([]byte, error) { return nil, nil })
	})
	ctx := context.Background()

	entry, err := svc.Predict(ctx, []byte("empty"))
	require.NoError(t, err)
	assert.Empty(t, entry.Value)

	svc.FastTier().Clear()
	entry, err = svc.Predict(ctx, []byte("empty"))
	require.NoError(t, err)
	assert.Equal(t, cache.LevelSharedTier, entry.Metadata.Level)
	assert.Empty(t, entry.Value)
}

func TestPredict_Timeout(t *testing.T) {
	svc, b, mr := newTestService(t, nil)
	b.Delay = 300 * time.Millisecond
	b.IgnoreContext = true

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.Predict(ctx, []byte(parisQuestion))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 250*time.Millisecond, "backend call should be abandoned")

	// the late result must be discarded
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 0, svc.FastTier().Len())
	assert.False(t, mr.Exists(svc.Keys().Key([]byte(parisQuestion)).String()))
	assert.Equal(t, uint64(1), svc.CacheStats().Misses)
}

func TestPredict_BackendTimeoutConfig(t *testing.T) {
	svc, b, _ := newTestService(t, func(c *Config) { c.BackendTimeout = 20 * time.Millisecond })
	b.Delay = 200 * time.Millisecond

	_, err := svc.Predict(context.Background(), []byte("slow"))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPredict_Cancelled(t *testing.T) {
	svc, b, _ := newTestService(t, nil)
	b.Delay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := svc.Predict(ctx, []byte("q"))
	assert.ErrorIs(t, err, ErrBackendFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestPredict_SharedTierDown(t *testing.T) {
	svc, b, mr := newTestService(t, nil)
	mr.Close()

	ctx := context.Background()
	entry, err := svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err, "shared tier failures must degrade, not fail")
	assert.Equal(t, "Paris", string(entry.Value))
	assert.False(t, entry.Metadata.Cached)

	// L1 still works without L2
	entry, err = svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)
	assert.Equal(t, cache.LevelFastTier, entry.Metadata.Level)
	assert.Equal(t, 1, b.Calls())

	assert.ErrorIs(t, svc.Ping(ctx), ErrSharedTier)
	assert.ErrorIs(t, svc.ClearCaches(ctx), ErrSharedTier)
	assert.Equal(t, 0, svc.FastTier().Len(), "L1 is cleared even if L2 fails")
}

func TestPredict_SharedTierWriteFailure(t *testing.T) {
	_, client := setupTestRedis(t)
	store := &flakyStore{
		SharedStore: cache.NewRedisStore(client),
		setErr:      errors.New("READONLY replica"),
	}
	svc, b, _ := newTestService(t, func(c *Config) { c.Store = store })

	entry, err := svc.Predict(context.Background(), []byte(parisQuestion))
	require.NoError(t, err)
	assert.Equal(t, "Paris", string(entry.Value))

	entry, err = svc.Predict(context.Background(), []byte(parisQuestion))
	require.NoError(t, err)
	assert.Equal(t, cache.LevelFastTier, entry.Metadata.Level)
	assert.Equal(t, 1, b.Calls())
}

func TestPredict_CorruptSharedEntry(t *testing.T) {
	svc, b, mr := newTestService(t, nil)

	key := svc.Keys().Key([]byte(parisQuestion))
	require.NoError(t, mr.Set(key.String(), "not json"))

	entry, err := svc.Predict(context.Background(), []byte(parisQuestion))
	require.NoError(t, err)
	assert.False(t, entry.Metadata.Cached)
	assert.Equal(t, 1, b.Calls())
}

func TestPredict_StrictSharedTier(t *testing.T) {
	_, client := setupTestRedis(t)
	cause := errors.New("connection refused")
	store := &flakyStore{SharedStore: cache.NewRedisStore(client), getErr: cause}

	svc, b, _ := newTestService(t, func(c *Config) {
		c.Store = store
		c.StrictSharedTier = true
	})

	_, err := svc.Predict(context.Background(), []byte(parisQuestion))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSharedTier)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, b.Calls())

	snap := svc.CacheStats()
	assert.Equal(t, snap.TotalRequests, snap.Hits()+snap.Misses)
}

func TestPredict_FastTierExpiry(t *testing.T) {
	svc, b, mr := newTestService(t, func(c *Config) {
		c.SharedTierTTL = 100 * time.Millisecond
		c.FastTierExpiry = true
	})
	ctx := context.Background()

	_, err := svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)

	// L1 dropped the entry; miniredis only expires on FastForward
	entry, err := svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)
	assert.Equal(t, cache.LevelSharedTier, entry.Metadata.Level)

	mr.FastForward(200 * time.Millisecond)

	entry, err = svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)
	assert.False(t, entry.Metadata.Cached)
	assert.Equal(t, 2, b.Calls())
}

func TestPredict_NoFastTierExpiryByDefault(t *testing.T) {
	svc, _, mr := newTestService(t, func(c *Config) { c.SharedTierTTL = 50 * time.Millisecond })
	ctx := context.Background()

	_, err := svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	mr.FastForward(time.Second)

	entry, err := svc.Predict(ctx, []byte(parisQuestion))
	require.NoError(t, err)
	assert.Equal(t, cache.LevelFastTier, entry.Metadata.Level)
}

func TestPredict_ConcurrentMissesWithoutCoalescing(t *testing.T) {
	svc, b, _ := newTestService(t, nil)
	b.Delay = 150 * time.Millisecond

	const callers = 5
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Predict(context.Background(), []byte("cold"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, callers, b.Calls())
}

func TestPredict_CoalesceMisses(t *testing.T) {
	svc, b, _ := newTestService(t, func(c *Config) { c.CoalesceMisses = true })
	b.Delay = 150 * time.Millisecond

	const callers = 10
	var wg sync.WaitGroup
	values := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, err := svc.Predict(context.Background(), []byte(parisQuestion))
			if assert.NoError(t, err) {
				values[i] = string(entry.Value)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, b.Calls())
	for _, v := range values {
		assert.Equal(t, "Paris", v)
	}

	snap := svc.CacheStats()
	assert.Equal(t, uint64(callers), snap.TotalRequests)
	assert.Equal(t, snap.TotalRequests, snap.Hits()+snap.Misses)
}

func TestPredict_CoalescedFollowerTimeout(t *testing.T) {
	svc, b, _ := newTestService(t, func(c *Config) { c.CoalesceMisses = true })
	b.Delay = 300 * time.Millisecond

	leaderDone := make(chan error, 1)
	go func() {
		_, err := svc.Predict(context.Background(), []byte("slow"))
		leaderDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := svc.Predict(ctx, []byte("slow"))
	assert.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, <-leaderDone)
	assert.Equal(t, 1, b.Calls())
}

func TestPredict_CoalescedLeaderCancelled(t *testing.T) {
	svc, b, _ := newTestService(t, func(c *Config) { c.CoalesceMisses = true })
	b.Delay = 200 * time.Millisecond

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderDone := make(chan error, 1)
	go func() {
		_, err := svc.Predict(leaderCtx, []byte(parisQuestion))
		leaderDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	followerDone := make(chan error, 1)
	var followerValue string
	go func() {
		entry, err := svc.Predict(context.Background(), []byte(parisQuestion))
		if err == nil {
			followerValue = string(entry.Value)
		}
		followerDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	leaderErr := <-leaderDone
	assert.ErrorIs(t, leaderErr, ErrBackendFailed)
	assert.ErrorIs(t, leaderErr, context.Canceled)

	require.NoError(t, <-followerDone)
	assert.Equal(t, "Paris", followerValue)
	assert.Equal(t, 1, b.Calls())

	// the shared result was still cached
	entry, err := svc.Predict(context.Background(), []byte(parisQuestion))
	require.NoError(t, err)
	assert.Equal(t, cache.LevelFastTier, entry.Metadata.Level)
	assert.Equal(t, 1, b.Calls())
}

func TestPredict_CoalescedFlightBoundedByBackendTimeout(t *testing.T) {
	svc, b, _ := newTestService(t, func(c *Config) {
		c.CoalesceMisses = true
		c.BackendTimeout = 50 * time.Millisecond
	})
	b.Delay = time.Second

	start := time.Now()
	_, err := svc.Predict(context.Background(), []byte("slow"))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

// TestCacheStats_SnapshotIsolation checks that no snapshot taken during a
// burst reports more outcomes than requests.
func TestCacheStats_SnapshotIsolation(t *testing.T) {
	svc, _, _ := newTestService(t, func(c *Config) { c.FastTierCapacity = 8 })

	const workers = 8
	const perWorker = 200

	stop := make(chan struct{})
	violations := make(chan string, 1)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := svc.CacheStats()
			if snap.Hits()+snap.Misses > snap.TotalRequests {
				select {
				case violations <- "outcomes exceed total":
				default:
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				input := []byte{byte('a' + (w+i)%16)}
				_, err := svc.Predict(context.Background(), input)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()
	close(stop)

	select {
	case v := <-violations:
		t.Fatal(v)
	default:
	}

	snap := svc.CacheStats()
	assert.Equal(t, uint64(workers*perWorker), snap.TotalRequests)
	assert.Equal(t, snap.TotalRequests, snap.Hits()+snap.Misses)
}

func TestClearCaches_KeepsStatsAndOtherNamespaces(t *testing.T) {
	_, client := setupTestRedis(t)
	store := cache.NewRedisStore(client)
	ctx := context.Background()

	newSvc := func(ns string) (*Service, *testutil.CountingBackend) {
		b := testutil.NewCountingBackend(nil)
		cfg := DefaultConfig(b)
		cfg.Store = store
		cfg.Namespace = ns
		svc, err := New(cfg)
		require.NoError(t, err)
		return svc, b
	}

	a, _ := newSvc("tenant-a")
	other, otherBackend := newSvc("tenant-b")

	for _, svc := range []*Service{a, other} {
		_, err := svc.Predict(ctx, []byte("q"))
		require.NoError(t, err)
	}

	require.NoError(t, a.ClearCaches(ctx))
	assert.Equal(t, uint64(1), a.CacheStats().TotalRequests)

	other.FastTier().Clear()
	entry, err := other.Predict(ctx, []byte("q"))
	require.NoError(t, err)
	assert.Equal(t, cache.LevelSharedTier, entry.Metadata.Level)
	assert.Equal(t, 1, otherBackend.Calls())
}

func TestDetailedStatsReport(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Predict(ctx, []byte(parisQuestion))
		require.NoError(t, err)
	}
	_, err := svc.Predict(ctx, []byte("other"))
	require.NoError(t, err)

	report := svc.DetailedStatsReport(0.01)
	for _, want := range []string{
		"Namespace:          cascade:prediction",
		"Fast tier:          2/100 entries",
		"Shared tier TTL:    1h0m0s",
		"Total requests:     4",
		"Fast tier hits:     2 (50.0%)",
		"Shared tier hits:   0 (0.0%)",
		"Misses:             2 (50.0%)",
		"Hit rate:           50.0%",
		"Estimated savings:  $0.02",
	} {
		assert.True(t, strings.Contains(report, want), "report missing %q:\n%s", want, report)
	}
}
