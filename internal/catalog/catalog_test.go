package catalog

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogShape(t *testing.T) {
	c := Default()

	factions := c.Factions()
	require.Len(t, factions, 4)
	for _, f := range factions {
		assert.Len(t, f.LoadoutIDs, 6, "faction %s", f.ID)
	}
	assert.Equal(t, "영국", factions[0].ID)
	assert.Equal(t, "영국::인도 포병 전투단", factions[0].LoadoutIDs[0])
}

func TestLookup(t *testing.T) {
	c := Default()

	l, err := c.Lookup("미국::기갑 전투단")
	require.NoError(t, err)
	assert.Equal(t, "미국", l.FactionID)
	assert.Equal(t, "기갑 전투단", l.Name)
	assert.Equal(t, "미군 · 기갑 전투단", l.Label)
	assert.Equal(t, "/images/battlegroups/armored_us_square.webp", l.Image)

	_, err = c.Lookup("미국::없는 전투단")
	assert.True(t, errors.Is(err, ErrUnknownLoadout))
	assert.False(t, c.Known("미국::없는 전투단"))
}

func TestLoadoutsOf(t *testing.T) {
	c := Default()

	loadouts, err := c.LoadoutsOf("국방")
	require.NoError(t, err)
	require.Len(t, loadouts, 6)
	assert.Equal(t, "국방::루프트바페 전투단", loadouts[0].ID)

	_, err = c.LoadoutsOf("소련")
	assert.True(t, errors.Is(err, ErrUnknownFaction))
}

func TestFactionOf(t *testing.T) {
	cases := []struct {
		in      string
		faction string
		ok      bool
	}{
		{"미국::기갑 전투단", "미국", true},
		{"소련::anything", "소련", true},
		{"no-separator", "", false},
		{"::name", "", false},
		{"미국::", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		faction, ok := FactionOf(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.faction, faction, tc.in)
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]FactionDef{
		{ID: "a", Name: "A", Loadouts: []string{"x"}},
		{ID: "a", Name: "A again"},
	}, nil, "")
	assert.Error(t, err)

	_, err = New([]FactionDef{{ID: "a", Loadouts: []string{"x", "x"}}}, nil, "")
	assert.Error(t, err)

	_, err = New([]FactionDef{{ID: "a::b"}}, nil, "")
	assert.Error(t, err)
}

func TestFallbackImage(t *testing.T) {
	c, err := New([]FactionDef{{ID: "a", Name: "A", Loadouts: []string{"x"}}}, nil, FallbackImage)
	require.NoError(t, err)

	l, err := c.Lookup("a::x")
	require.NoError(t, err)
	assert.Equal(t, FallbackImage, l.Image)
}

func TestFactionsReturnsCopies(t *testing.T) {
	c := Default()

	factions := c.Factions()
	factions[0].LoadoutIDs[0] = "mutated"

	assert.Equal(t, "영국::인도 포병 전투단", c.Factions()[0].LoadoutIDs[0])
}

func TestConcurrentReads(t *testing.T) {
	c := Default()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, f := range c.Factions() {
				for _, id := range f.LoadoutIDs {
					if _, err := c.Lookup(id); err != nil {
						t.Errorf("lookup %s: %v", id, err)
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestSmallestFaction(t *testing.T) {
	assert.Equal(t, 6, Default().SmallestFaction())

	c, err := New([]FactionDef{
		{ID: "a", Name: "A", Loadouts: []string{"x", "y", "z"}},
		{ID: "b", Name: "B", Loadouts: []string{"x", "y"}},
	}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 2, c.SmallestFaction())

	empty, err := New(nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.SmallestFaction())
}
