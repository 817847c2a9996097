package xid

import (
	"errors"
	"sync"
	"testing"

	"github.com/sony/sonyflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	t.Run("custom machine id", func(t *testing.T) {
		g, err := NewGenerator(WithMachineID(func() (uint16, error) { return 42, nil }))
		require.NoError(t, err)

		id, err := g.New()
		require.NoError(t, err)
		assert.Equal(t, int64(42), id&0xFFFF)
	})

	t.Run("machine id rejected", func(t *testing.T) {
		_, err := NewGenerator(
			WithMachineID(func() (uint16, error) { return 7, nil }),
			WithCheckMachineID(func(uint16) bool { return false }),
		)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("machine id error", func(t *testing.T) {
		_, err := NewGenerator(WithMachineID(func() (uint16, error) {
			return 0, errors.New("boom")
		}))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("nil option skipped", func(t *testing.T) {
		g, err := NewGenerator(nil, WithMachineID(func() (uint16, error) { return 1, nil }))
		require.NoError(t, err)
		assert.NotNil(t, g)
	})
}

func TestGenerator_NewString(t *testing.T) {
	g, err := NewGenerator(WithMachineID(func() (uint16, error) { return 3, nil }))
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		s, err := g.NewString()
		require.NoError(t, err)
		assert.LessOrEqual(t, len(s), 13)
		_, dup := seen[s]
		require.False(t, dup, "duplicate id %s", s)
		seen[s] = struct{}{}

		id, err := Parse(s)
		require.NoError(t, err)
		assert.Positive(t, id)
	}
}

func TestGenerator_Nil(t *testing.T) {
	var g *Generator
	_, err := g.New()
	assert.ErrorIs(t, err, ErrNilGenerator)

	_, err = (&Generator{}).NewString()
	assert.ErrorIs(t, err, ErrNilGenerator)
}

func TestGenerator_OverTimeLimit(t *testing.T) {
	g := &Generator{generateID: func() (int64, error) {
		return 0, sonyflake.ErrOverTimeLimit
	}}
	_, err := g.New()
	assert.ErrorIs(t, err, ErrOverTimeLimit)
	assert.ErrorIs(t, err, sonyflake.ErrOverTimeLimit)
}

func TestNewString_Global(t *testing.T) {
	t.Setenv(EnvMachineID, "9")
	defaultGen.Store(nil)
	t.Cleanup(func() { defaultGen.Store(nil) })

	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := MustNewString()
			mu.Lock()
			ids[s] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 20)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "1a2b3c", false},
		{"empty", "", true},
		{"syntax", "!!", true},
		{"zero", "0", true},
		{"negative", "-1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
