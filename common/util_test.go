package common

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownHook(t *testing.T) {
	shook := NewShutdownhook()
	var called []int
	shook.AddHook(func() { called = append(called, 1) })
	shook.AddHook(func() { called = append(called, 2) })

	go func() {
		time.Sleep(100 * time.Millisecond)
		shook.ch <- syscall.SIGINT
	}()
	shook.WaitShutdown()
	assert.Equal(t, []int{1, 2}, called)
}

func TestHasNil(t *testing.T) {
	var p *int
	var m map[string]int
	var f func()
	assert.True(t, HasNil(nil))
	assert.True(t, HasNil(1, p))
	assert.True(t, HasNil(m))
	assert.True(t, HasNil(f))
	assert.False(t, HasNil(1, "a", &struct{}{}))
	assert.False(t, HasNil())
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty("a", " "))
	assert.False(t, IsEmpty("a", "b"))
}

func TestFnv32Hashcode(t *testing.T) {
	assert.Equal(t, Fnv32Hashcode("item-1"), Fnv32Hashcode("item-1"))
	assert.True(t, Fnv32Hashcode("item-2") >= 0)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("get item: %w", ErrTransient)))
	assert.True(t, IsRetryable(fmt.Errorf("update item: %w", ErrConflict)))
	assert.False(t, IsRetryable(fmt.Errorf("get item: %w", ErrNotFound)))
	assert.False(t, IsRetryable(errors.New("other")))
}
