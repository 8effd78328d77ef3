package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPutGet(t *testing.T) {
	c := New[string](time.Minute)

	c.Put("k", "v")
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestGet_Miss(t *testing.T) {
	c := New[int](time.Minute)

	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestGet_Expired(t *testing.T) {
	c := New[string](10 * time.Millisecond)

	c.Put("k", "v")
	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be removed on read")
}

func TestBust(t *testing.T) {
	c := New[string](time.Minute)

	c.Put("k", "v")
	c.Bust("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCleaner(t *testing.T) {
	c := New[string](10 * time.Millisecond)
	stop := make(chan struct{})
	go c.StartCleaner(20*time.Millisecond, stop)
	defer close(stop)

	c.Put("k", "v")
	assert.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 10*time.Millisecond)
}
