package helpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, exp, err := m.GenerateAccessToken("user-1", "school-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "school-1", claims.SchoolID)

	_, err = NewJWTManager("other", time.Hour).ParseAccessToken(token)
	assert.Error(t, err)
}

func TestJWTRejectsExpiredAndIncompleteTokens(t *testing.T) {
	expired, _, err := NewJWTManager("secret", -time.Minute).GenerateAccessToken("user-1", "school-1")
	require.NoError(t, err)
	_, err = NewJWTManager("secret", time.Hour).ParseAccessToken(expired)
	assert.Error(t, err)

	noSchool, _, err := NewJWTManager("secret", time.Hour).GenerateAccessToken("user-1", "")
	require.NoError(t, err)
	_, err = NewJWTManager("secret", time.Hour).ParseAccessToken(noSchool)
	assert.EqualError(t, err, "token missing user or school")
}

func TestRedisGetJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	var out []string
	found, err := RedisGetJSON(ctx, rdb, "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, mr.Set("k", `["a","b"]`))
	found, err = RedisGetJSON(ctx, rdb, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, out)

	require.NoError(t, mr.Set("bad", `{`))
	_, err = RedisGetJSON(ctx, rdb, "bad", &out)
	assert.Error(t, err)
}

func TestRedisDelByPattern(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	for i := 0; i < 250; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("permissions:s1:ROLE%d", i), "[]"))
	}
	require.NoError(t, mr.Set("permissions:s2:TEACHER", "[]"))

	n, err := RedisDelByPattern(context.Background(), rdb, "permissions:s1:*")
	require.NoError(t, err)
	assert.Equal(t, int64(250), n)
	assert.Equal(t, []string{"permissions:s2:TEACHER"}, mr.Keys())
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.True(t, CompareHashAndPassword(hash, "password123"))
	assert.False(t, CompareHashAndPassword(hash, "nope"))
}
