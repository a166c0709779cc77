package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview_LatestEmpty(t *testing.T) {
	p := NewPreview()

	frame, seq := p.Latest()

	assert.Nil(t, frame)
	assert.Equal(t, uint64(0), seq)
}

func TestPreview_NextWaitsForPublish(t *testing.T) {
	p := NewPreview()
	p.Publish([]byte("one"))

	got := make(chan []byte, 1)
	go func() {
		frame, _, err := p.Next(context.Background(), 1)
		if err == nil {
			got <- frame
		}
	}()

	select {
	case <-got:
		t.Fatal("Next returned before a newer frame was published")
	case <-time.After(20 * time.Millisecond):
	}

	p.Publish([]byte("two"))

	select {
	case frame := <-got:
		assert.Equal(t, []byte("two"), frame)
	case <-time.After(time.Second):
		t.Fatal("Next did not wake up")
	}
}

func TestPreview_NextReturnsImmediatelyWhenBehind(t *testing.T) {
	p := NewPreview()
	p.Publish([]byte("a"))
	p.Publish([]byte("b"))

	frame, seq, err := p.Next(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, []byte("b"), frame)
	assert.Equal(t, uint64(2), seq)
}

func TestPreview_NextCancelled(t *testing.T) {
	p := NewPreview()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := p.Next(ctx, 0)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
