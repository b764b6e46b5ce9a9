package keeper

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jamesainslie/crate/pkg/crate/types"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func track(path string, origin types.Origin, mtime time.Duration) types.TrackFile {
	return types.TrackFile{Path: path, Origin: origin, ModTime: epoch.Add(mtime), SizeBytes: 1000}
}

func TestIsLossless(t *testing.T) {
	assert.True(t, IsLossless(types.TrackFile{Path: "/a/song.FLAC"}))
	assert.True(t, IsLossless(types.TrackFile{Path: "/a/song.aiff"}))
	assert.True(t, IsLossless(types.TrackFile{Path: "/a/song.ape"}))
	assert.True(t, IsLossless(types.TrackFile{Path: "/a/song.WV"}))
	assert.True(t, IsLossless(types.TrackFile{Path: "/a/song.m4a", BitsPerSample: 24}))
	assert.False(t, IsLossless(types.TrackFile{Path: "/a/song.mp3", BitrateKbps: 320}))
	assert.False(t, IsLossless(types.TrackFile{Path: "/a/song.m4a"}))
}

func TestChooseBestPrefersLossless(t *testing.T) {
	flac := track("/lib/a.flac", types.OriginSource, 0)
	flac.BitrateKbps = 0
	mp3 := track("/lib/a.mp3", types.OriginSource, 0)
	mp3.BitrateKbps = 320
	mp3.SampleRate = 48000

	assert.Equal(t, flac.Path, Choose([]types.TrackFile{mp3, flac}, types.KeepBest, "").Path)
	assert.Equal(t, flac.Path, Choose([]types.TrackFile{flac, mp3}, types.KeepBest, "").Path)
	assert.Equal(t, flac.Path, Choose([]types.TrackFile{mp3, flac}, "", "").Path)
}

func TestChooseBestRanking(t *testing.T) {
	tests := []struct {
		name   string
		better func(*types.TrackFile)
	}{
		{name: "bitrate", better: func(tf *types.TrackFile) { tf.BitrateKbps = 320 }},
		{name: "sample rate", better: func(tf *types.TrackFile) { tf.SampleRate = 96000 }},
		{name: "size", better: func(tf *types.TrackFile) { tf.SizeBytes = 5000 }},
		{name: "mtime", better: func(tf *types.TrackFile) { tf.ModTime = tf.ModTime.Add(time.Hour) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the worse file gets the lexically greater path so only the
			// field under test can decide
			worse := track("/lib/z.mp3", types.OriginSource, 0)
			worse.BitrateKbps = 256
			worse.SampleRate = 44100
			better := track("/lib/a.mp3", types.OriginSource, 0)
			better.BitrateKbps = 256
			better.SampleRate = 44100
			tt.better(&better)

			assert.Equal(t, better.Path, Choose([]types.TrackFile{worse, better}, types.KeepBest, "").Path)
			assert.Positive(t, Compare(better, worse))
			assert.Negative(t, Compare(worse, better))
		})
	}

	// path is the final tie-break
	a := track("/lib/a.mp3", types.OriginSource, 0)
	b := track("/lib/b.mp3", types.OriginSource, 0)
	assert.Equal(t, b.Path, Choose([]types.TrackFile{a, b}, types.KeepBest, "").Path)
	assert.Zero(t, Compare(a, a))
}

func TestChooseNewestOldest(t *testing.T) {
	old := track("/lib/old.mp3", types.OriginSource, -time.Hour)
	mid := track("/lib/mid.flac", types.OriginSource, 0)
	fresh := track("/lib/fresh.mp3", types.OriginSource, time.Hour)
	group := []types.TrackFile{mid, fresh, old}

	assert.Equal(t, fresh.Path, Choose(group, types.KeepNewest, "").Path)
	assert.Equal(t, old.Path, Choose(group, types.KeepOldest, "").Path)

	// equal mtimes fall back to path: max for newest, min for oldest
	x := track("/lib/x.mp3", types.OriginSource, 0)
	y := track("/lib/y.mp3", types.OriginSource, 0)
	assert.Equal(t, y.Path, Choose([]types.TrackFile{x, y}, types.KeepNewest, "").Path)
	assert.Equal(t, x.Path, Choose([]types.TrackFile{y, x}, types.KeepOldest, "").Path)
}

func TestChoosePreferOrigin(t *testing.T) {
	src := track("/src/a.mp3", types.OriginSource, -time.Hour)
	src.BitrateKbps = 128
	cmp := track("/cmp/a.flac", types.OriginCompare, time.Hour)
	group := []types.TrackFile{cmp, src}

	assert.Equal(t, src.Path, Choose(group, types.KeepNewest, types.OriginSource).Path)
	assert.Equal(t, src.Path, Choose(group, types.KeepBest, types.OriginSource).Path)
	assert.Equal(t, cmp.Path, Choose(group, types.KeepBest, types.OriginCompare).Path)

	// no member with the preferred origin: the whole group competes
	onlySource := []types.TrackFile{src, track("/src/b.mp3", types.OriginSource, 0)}
	assert.Equal(t, "/src/b.mp3", Choose(onlySource, types.KeepNewest, types.OriginCompare).Path)
}

func TestChooseIsDeterministic(t *testing.T) {
	var group []types.TrackFile
	for _, p := range []string{"/a.mp3", "/b.mp3", "/c.mp3", "/d.ogg", "/e.m4a"} {
		group = append(group, track(p, types.OriginSource, 0))
	}
	rng := rand.New(rand.NewSource(7))

	for _, strategy := range []types.KeepStrategy{types.KeepBest, types.KeepNewest, types.KeepOldest} {
		want := Choose(group, strategy, "").Path
		for i := 0; i < 20; i++ {
			shuffled := append([]types.TrackFile(nil), group...)
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			assert.Equal(t, want, Choose(shuffled, strategy, "").Path, "strategy %s", strategy)
		}
	}
}
