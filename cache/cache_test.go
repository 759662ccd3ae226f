package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/flowscout/models"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(ttl time.Duration, max int) (*Cache, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(ttl, max).WithClock(clk.now), clk
}

var cd3 = Key{Vendor: models.VendorBioLegend, Target: "cd3", Species: "human", Laser: models.LaserBlue}

func TestCache_HitWithinTTL(t *testing.T) {
	c, clk := newTestCache(5*time.Minute, 10)
	set := &models.ResultSet{Records: []models.Record{{ProductName: "A"}}}
	c.Set(cd3, set)

	clk.advance(4*time.Minute + 59*time.Second)
	got, ok := c.Get(cd3)
	require.True(t, ok)
	assert.Same(t, set, got)
}

func TestCache_ExpiredEntryIsDeleted(t *testing.T) {
	c, clk := newTestCache(5*time.Minute, 10)
	c.Set(cd3, &models.ResultSet{})

	clk.advance(5 * time.Minute)
	_, ok := c.Get(cd3)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_SetOverwrites(t *testing.T) {
	c, clk := newTestCache(5*time.Minute, 10)
	c.Set(cd3, &models.ResultSet{Strategy: "old"})

	clk.advance(4 * time.Minute)
	c.Set(cd3, &models.ResultSet{Strategy: "new"})

	clk.advance(4 * time.Minute)
	got, ok := c.Get(cd3)
	require.True(t, ok, "overwrite refreshes createdAt")
	assert.Equal(t, "new", got.Strategy)
	assert.Equal(t, 1, c.Len())
}

func TestCache_CapacityEvictsExpiredFirst(t *testing.T) {
	c, clk := newTestCache(time.Minute, 2)
	stale := Key{Vendor: models.VendorBD, Target: "cd4", Species: "human", Laser: models.LaserRed}
	fresh := Key{Vendor: models.VendorBD, Target: "cd8", Species: "human", Laser: models.LaserRed}

	c.Set(stale, &models.ResultSet{})
	clk.advance(2 * time.Minute)
	c.Set(fresh, &models.ResultSet{})
	c.Set(cd3, &models.ResultSet{})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(fresh)
	assert.True(t, ok)
	_, ok = c.Get(cd3)
	assert.True(t, ok)
}

func TestCache_CapacityBound(t *testing.T) {
	c, _ := newTestCache(time.Hour, 3)
	for _, target := range []string{"a", "b", "c", "d", "e"} {
		c.Set(Key{Vendor: models.VendorThermo, Target: target}, &models.ResultSet{})
	}
	assert.Equal(t, 3, c.Len())
}

func TestKeyFor(t *testing.T) {
	a := KeyFor(models.Query{Vendor: models.VendorBioLegend, Target: "CD3", Species: "Human", Laser: models.LaserBlue})
	b := KeyFor(models.Query{
		Vendor: models.VendorBioLegend, Target: "cd3", Species: "HUMAN", Laser: models.LaserBlue,
		OverrideURL: "https://www.biolegend.com/x",
	})
	assert.Equal(t, a, b)
	assert.Equal(t, cd3, a)
}
