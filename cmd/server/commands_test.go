package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttempts struct {
	blocked   map[string]bool
	unblocked []string
	err       error
}

func (f *fakeAttempts) Blocked(_ context.Context, ip string) (bool, error) {
	return f.blocked[ip], nil
}

func (f *fakeAttempts) Hit(context.Context, string) (int64, error) { return 0, nil }

func (f *fakeAttempts) Block(_ context.Context, ip string) error {
	f.blocked[ip] = true
	return nil
}

func (f *fakeAttempts) Unblock(_ context.Context, ip string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.blocked, ip)
	f.unblocked = append(f.unblocked, ip)
	return nil
}

func TestUnblockIP(t *testing.T) {
	ctx := context.Background()
	counter := &fakeAttempts{blocked: map[string]bool{"203.0.113.7": true}}

	var out bytes.Buffer
	require.NoError(t, unblockIP(ctx, counter, "203.0.113.7", &out))
	assert.Equal(t, "unblocked 203.0.113.7\n", out.String())
	assert.False(t, counter.blocked["203.0.113.7"])

	out.Reset()
	require.NoError(t, unblockIP(ctx, counter, "2001:db8::1", &out))
	assert.Contains(t, out.String(), "was not blocked")
	assert.Equal(t, []string{"203.0.113.7", "2001:db8::1"}, counter.unblocked)
}

func TestUnblockIPRejectsBadInput(t *testing.T) {
	counter := &fakeAttempts{blocked: map[string]bool{}}
	var out bytes.Buffer

	err := unblockIP(context.Background(), counter, "not-an-ip", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--ip")
	assert.Empty(t, counter.unblocked)

	counter.err = errors.New("redis down")
	err = unblockIP(context.Background(), counter, "10.0.0.1", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	assert.Empty(t, out.String())
}
