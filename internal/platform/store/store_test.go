package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// backends returns every Store implementation that can run without external
// services.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"redis":  NewRedis(client, "hms:"),
	}
}

func TestStore_GetMissingKey(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "absent")
			assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

			var dst record
			found, err := GetJSON(context.Background(), s, "absent", &dst)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestStore_SetThenGetJSON(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, SetJSON(ctx, s, "appointments_john@example.com", []record{{Name: "a", Count: 1}}))

			var got []record
			found, err := GetJSON(ctx, s, "appointments_john@example.com", &got)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, []record{{Name: "a", Count: 1}}, got)
		})
	}
}

func TestStore_UpdateJSONCreatesAndModifies(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			inc := func(cur record) (record, error) {
				cur.Name = "counter"
				cur.Count++
				return cur, nil
			}
			require.NoError(t, UpdateJSON(ctx, s, "counter", inc))
			require.NoError(t, UpdateJSON(ctx, s, "counter", inc))

			var got record
			_, err := GetJSON(ctx, s, "counter", &got)
			require.NoError(t, err)
			assert.Equal(t, 2, got.Count)
		})
	}
}

func TestStore_UpdateAbortLeavesValue(t *testing.T) {
	ctx := context.Background()
	abort := errors.New("slot taken")
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "k", []byte(`{"name":"before","count":1}`)))

			err := s.Update(ctx, "k", func([]byte) ([]byte, error) { return nil, abort })
			assert.ErrorIs(t, err, abort)

			raw, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.JSONEq(t, `{"name":"before","count":1}`, string(raw))
		})
	}
}

func TestStore_KeysByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"appointments_b", "appointments_a", "registrations_a", "hms_users"} {
				require.NoError(t, s.Set(ctx, k, []byte(`[]`)))
			}
			keys, err := s.Keys(ctx, AppointmentsPrefix)
			require.NoError(t, err)
			assert.Equal(t, []string{"appointments_a", "appointments_b"}, keys)
		})
	}
}

func TestStore_ConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := UpdateJSON(ctx, s, "shared", func(cur record) (record, error) {
						cur.Count++
						return cur, nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			var got record
			_, err := GetJSON(ctx, s, "shared", &got)
			require.NoError(t, err)
			assert.Equal(t, 5, got.Count)
		})
	}
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", []byte("abc")))

	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	v[0] = 'z'

	again, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestRedis_NamespacesKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedis(client, "hms:")
	require.NoError(t, s.Set(context.Background(), UsersKey, []byte(`[]`)))

	assert.True(t, mr.Exists("hms:hms_users"))
	assert.False(t, mr.Exists("hms_users"))
}

func TestScheduleKey(t *testing.T) {
	assert.Equal(t, "schedule_7_2024-06-10", ScheduleKey(7, "2024-06-10"))
	assert.Equal(t, "appointments_john@example.com", AppointmentsKey("john@example.com"))
	assert.Equal(t, "registrations_john@example.com", RegistrationsKey("john@example.com"))
	assert.Equal(t, "session_john@example.com", SessionKey("john@example.com"))
}
