package signature_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/signature"
)

func TestSession_Memoizes(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	src := signature.SourceFunc(func(_ context.Context, g phphints.CallGroup) (*signature.Signature, error) {
		calls.Add(1)

		if g.Name == "missing" {
			return nil, signature.ErrNotFound
		}

		return &signature.Signature{Name: g.Name}, nil
	})

	s := signature.NewSession(src)
	ctx := context.Background()

	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			sig, err := s.Lookup(ctx, phphints.CallGroup{Name: "greet"})
			assert.NoError(t, err)
			assert.Equal(t, "greet", sig.Name)
		}()
	}

	wg.Wait()

	_, err := s.Lookup(ctx, phphints.CallGroup{Name: "missing"})
	require.ErrorIs(t, err, signature.ErrNotFound)
	_, err = s.Lookup(ctx, phphints.CallGroup{Name: "missing"})
	require.ErrorIs(t, err, signature.ErrNotFound)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, s.Len())
}

func TestSession_KeyedByCallee(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	s := signature.NewSession(signature.SourceFunc(func(context.Context, phphints.CallGroup) (*signature.Signature, error) {
		calls.Add(1)

		return &signature.Signature{}, nil
	}))

	ctx := context.Background()
	_, _ = s.Lookup(ctx, phphints.CallGroup{Name: "run", Kind: phphints.CallFunction})
	_, _ = s.Lookup(ctx, phphints.CallGroup{Name: "run", Kind: phphints.CallMethod})
	_, _ = s.Lookup(ctx, phphints.CallGroup{Name: "run", Kind: phphints.CallStatic, Scope: "Job"})
	_, _ = s.Lookup(ctx, phphints.CallGroup{Name: "run", Kind: phphints.CallStatic, Scope: "Job"})

	assert.Equal(t, int32(3), calls.Load())
}

func TestSession_DoesNotMemoizeCancellation(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	s := signature.NewSession(signature.SourceFunc(func(ctx context.Context, _ phphints.CallGroup) (*signature.Signature, error) {
		calls.Add(1)

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return &signature.Signature{}, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Lookup(ctx, phphints.CallGroup{Name: "f"})
	require.ErrorIs(t, err, context.Canceled)

	_, err = s.Lookup(context.Background(), phphints.CallGroup{Name: "f"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
