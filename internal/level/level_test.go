package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForLevelFirst(t *testing.T) {
	cfg := ForLevel(1)
	assert.Equal(t, Config{Number: 1, StoneCount: 3, BeanCount: 15, BeanColor: "#ffeb3b"}, cfg)
}

func TestForLevelBoundsAndMonotonic(t *testing.T) {
	prev := ForLevel(1)
	for n := 1; n <= MaxLevel; n++ {
		cfg := ForLevel(n)
		assert.GreaterOrEqual(t, cfg.StoneCount, 3, "level %d", n)
		assert.LessOrEqual(t, cfg.StoneCount, 10, "level %d", n)
		assert.GreaterOrEqual(t, cfg.BeanCount, 10, "level %d", n)
		assert.LessOrEqual(t, cfg.BeanCount, 60, "level %d", n)
		assert.GreaterOrEqual(t, cfg.StoneCount, prev.StoneCount, "level %d", n)
		assert.GreaterOrEqual(t, cfg.BeanCount, prev.BeanCount, "level %d", n)
		prev = cfg
	}
}

func TestForLevelCaps(t *testing.T) {
	cfg := ForLevel(50)
	assert.Equal(t, 10, cfg.StoneCount)
	assert.Equal(t, 60, cfg.BeanCount)
}

func TestColorAlternates(t *testing.T) {
	assert.Equal(t, ColorOdd, ForLevel(3).BeanColor)
	assert.Equal(t, ColorEven, ForLevel(4).BeanColor)
}

func TestNextWrapsAfterLastLevel(t *testing.T) {
	n, ok := Next(4)
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	n, ok = Next(MaxLevel)
	assert.False(t, ok)
	assert.Equal(t, 1, n)
}

func TestRGB(t *testing.T) {
	r, g, b, err := ForLevel(2).RGB()
	require.NoError(t, err)
	assert.Equal(t, []uint8{0xff, 0x52, 0x52}, []uint8{r, g, b})

	_, _, _, err = Config{BeanColor: "red"}.RGB()
	assert.Error(t, err)
}
