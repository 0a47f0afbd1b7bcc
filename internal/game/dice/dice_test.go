package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/critterbound/internal/game/dice"
)

// TestCryptoSource_Intn_InRange verifies the postcondition:
// every value returned by Intn(6) is in [0, 6).
func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

// TestCryptoSource_Intn_PanicsOnZero verifies the precondition:
// Intn panics when called with n <= 0.
func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

func TestCryptoSource_Float64_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestSeededSource_Deterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		a := dice.NewSeededSource(seed)
		b := dice.NewSeededSource(seed)
		for i := 0; i < 20; i++ {
			assert.Equal(rt, a.Float64(), b.Float64())
			assert.Equal(rt, a.Intn(10), b.Intn(10))
		}
	})
}

func TestSeededSource_Float64_Property_InRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		src := dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed"))
		v := src.Float64()
		assert.GreaterOrEqual(rt, v, 0.0)
		assert.Less(rt, v, 1.0)
	})
}

func TestSeededSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewSeededSource(1).Intn(0) })
}

func TestLoggedSource_LogsEveryDraw(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	src := dice.NewLoggedSource(dice.NewSeededSource(7), zap.New(core))
	_ = src.Float64()
	_ = src.Intn(4)
	entries := logs.FilterMessage("dice draw").All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "float64", entries[0].ContextMap()["kind"])
	assert.Equal(t, "intn", entries[1].ContextMap()["kind"])
}
