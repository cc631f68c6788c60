package typewriter

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestType_EmitsEachRuneInOrder(t *testing.T) {
	var got []string
	err := New(0).Type(context.Background(), "a€b", func(s string) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "€", "b"}, got)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(time.Millisecond).Write(context.Background(), &buf, `[{"a": 1}]`))
	assert.Equal(t, `[{"a": 1}]`, buf.String())
}

func TestType_PacesOutput(t *testing.T) {
	start := time.Now()
	require.NoError(t, New(5*time.Millisecond).Type(context.Background(), "abcd", func(string) error { return nil }))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestType_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	err := New(time.Hour).Type(ctx, "abcdef", func(string) error {
		n++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
}

func TestType_StopsOnEmitError(t *testing.T) {
	boom := errors.New("closed")
	n := 0
	err := New(0).Type(context.Background(), "abc", func(string) error {
		n++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}

func TestNew_NegativeDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), New(-time.Second).Delay)
}
