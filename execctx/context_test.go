package execctx

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wudi/continuum/signal"
)

func TestHandleYieldPointNoRequestDoesNotRaise(t *testing.T) {
	ctx := New()
	assert.NotPanics(t, func() {
		ctx.HandleYieldPoint(0)
	})
}

func TestHandleYieldPointRaisesAfterRequest(t *testing.T) {
	ctx := New()
	ctx.RequestYield()

	defer func() {
		r := recover()
		s, ok := signal.Recover(r)
		assert.True(t, ok)
		assert.Equal(t, int32(5), s.YieldPointID)
	}()
	ctx.HandleYieldPoint(5)
	t.Fatal("expected suspension panic")
}

func TestHandleYieldPointWithBudgetExhaustion(t *testing.T) {
	ctx := New()
	ctx.ResetBudget(3)

	suspendedAt := -1
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := signal.Recover(r); ok {
					suspendedAt = 1
				}
			}
		}()
		for i := 0; i < 10; i++ {
			ctx.HandleYieldPointWithBudget(0, 1)
		}
	}()
	assert.Equal(t, 1, suspendedAt)
}

func TestRunWithRestoresPrevious(t *testing.T) {
	outer := New()
	_, _ = RunWith(outer, func() (any, error) {
		got, ok := Current()
		assert.True(t, ok)
		assert.Same(t, outer, got)

		inner := New()
		_, _ = RunWith(inner, func() (any, error) {
			got, ok := Current()
			assert.True(t, ok)
			assert.Same(t, inner, got)
			return nil, nil
		})

		got, ok = Current()
		assert.True(t, ok)
		assert.Same(t, outer, got)
		return nil, nil
	})
	_, ok := Current()
	assert.False(t, ok)
}

func TestRunWithRestoresOnPanic(t *testing.T) {
	outer := New()
	_, _ = RunWith(outer, func() (any, error) {
		func() {
			defer func() { recover() }()
			_, _ = RunWith(New(), func() (any, error) {
				panic("boom")
			})
		}()
		got, ok := Current()
		assert.True(t, ok)
		assert.Same(t, outer, got)
		return nil, nil
	})
}
