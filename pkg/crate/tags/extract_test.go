package tags

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/crate/pkg/crate/types"
)

func TestIsAudio(t *testing.T) {
	for _, p := range []string{"a.mp3", "b.FLAC", "c.Wav", "d.aif", "e.aiff", "f.m4a", "g.aac", "h.ogg", "i.opus", "j.wma", "k.ape", "l.WV"} {
		assert.True(t, IsAudio(p), p)
	}
	for _, p := range []string{"cover.jpg", "notes.txt", "mp3", "playlist.m3u"} {
		assert.False(t, IsAudio(p), p)
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.ogg")
	content := make([]byte, 3*hashChunkSize+17)
	for i := range content {
		content[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, content, 0o644))

	want := sha256.Sum256(content)
	got, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(want[:]), got)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing.ogg"))
	assert.Error(t, err)
}

func TestExtractUnknownFormatDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.mp3")
	require.NoError(t, os.WriteFile(path, []byte("this is not audio at all"), 0o644))

	rec, err := FileExtractor{}.Extract(path, types.OriginCompare, false)
	require.NoError(t, err)

	assert.Equal(t, path, rec.Path)
	assert.Equal(t, types.OriginCompare, rec.Origin)
	assert.Equal(t, int64(24), rec.SizeBytes)
	assert.False(t, rec.ModTime.IsZero())
	assert.Empty(t, rec.Artist)
	assert.Empty(t, rec.Title)
	assert.False(t, rec.HasDuration)
	assert.Equal(t, types.HashNotComputed, rec.HashState)
	assert.Empty(t, rec.FileHash)
}

func TestExtractHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.opus")
	require.NoError(t, os.WriteFile(path, []byte("opus bytes"), 0o644))

	rec, err := FileExtractor{}.Extract(path, types.OriginSource, true)
	require.NoError(t, err)
	assert.Equal(t, types.HashComputed, rec.HashState)
	sum := sha256.Sum256([]byte("opus bytes"))
	assert.Equal(t, hex.EncodeToString(sum[:]), rec.FileHash)
}

func TestExtractHashFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read unreadable files")
	}
	path := filepath.Join(t.TempDir(), "locked.mp3")
	require.NoError(t, os.WriteFile(path, []byte("locked"), 0o000))

	rec, err := FileExtractor{}.Extract(path, types.OriginSource, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHashFailed)
	assert.Equal(t, path, rec.Path)
	assert.Equal(t, types.HashFailed, rec.HashState)
	assert.Empty(t, rec.FileHash)
	assert.False(t, rec.HasHash())
}

func TestExtractMissingFile(t *testing.T) {
	_, err := FileExtractor{}.Extract(filepath.Join(t.TempDir(), "nope.flac"), types.OriginSource, true)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	const rate = 8000
	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		Data:           make([]int, rate*2*2),
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	rec, err := FileExtractor{}.Extract(path, types.OriginSource, false)
	require.NoError(t, err)

	assert.Equal(t, rate, rec.SampleRate)
	assert.Equal(t, 16, rec.BitsPerSample)
	assert.Equal(t, 256, rec.BitrateKbps)
	require.True(t, rec.HasDuration)
	assert.InDelta(t, 2.0, rec.DurationSec, 0.01)
}

// flacHeader returns a stream with only a STREAMINFO block.
func flacHeader(sampleRate, channels, bits int, samples uint64) []byte {
	out := []byte("fLaC")
	out = append(out, 0x80, 0, 0, 34)

	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:], 4096)
	binary.BigEndian.PutUint16(info[2:], 4096)
	packed := uint64(sampleRate)<<44 | uint64(channels-1)<<41 | uint64(bits-1)<<36 | samples
	binary.BigEndian.PutUint64(info[10:], packed)
	return append(out, info...)
}

func TestExtractFLACStreamInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hires.flac")
	require.NoError(t, os.WriteFile(path, flacHeader(96000, 2, 24, 96000*30), 0o644))

	rec, err := FileExtractor{}.Extract(path, types.OriginSource, false)
	require.NoError(t, err)

	assert.Equal(t, 96000, rec.SampleRate)
	assert.Equal(t, 24, rec.BitsPerSample)
	require.True(t, rec.HasDuration)
	assert.InDelta(t, 30.0, rec.DurationSec, 0.001)
}

func TestExtractCorruptFLACDegrades(t *testing.T) {
	// A PICTURE block first, whose MIME length claims ~3.5 GB.
	picture := []byte("fLaC")
	picture = append(picture, 0x86, 0, 0, 32)
	picture = append(picture, 0, 0, 0, 3)
	picture = append(picture, 0xd1, 0x85, 0x6a, 0xde)
	picture = append(picture, make([]byte, 40-len(picture))...)

	tests := []struct {
		name string
		data []byte
	}{
		{"oversized picture block first", picture},
		{"truncated header", []byte("fLaC\x00\x00")},
		{"wrong signature", append([]byte("OggS"), flacHeader(44100, 2, 16, 44100)[4:]...)},
		{"short streaminfo length", append([]byte("fLaC\x80\x00\x00\x10"), make([]byte, 16)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "broken.flac")
			require.NoError(t, os.WriteFile(path, tt.data, 0o644))

			rec, err := FileExtractor{}.Extract(path, types.OriginSource, true)
			require.NoError(t, err)
			assert.False(t, rec.HasDuration)
			assert.Zero(t, rec.SampleRate)
			assert.Equal(t, types.HashComputed, rec.HashState)
		})
	}
}

func TestExtractMP3Tags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.mp3")

	tag := id3v2.NewEmptyTag()
	tag.SetArtist("Daft Punk")
	tag.SetTitle("One More Time (Radio Edit)")
	tag.AddTextFrame("TLEN", tag.DefaultEncoding(), "320500")
	tag.SetVersion(3)

	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = tag.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rec, err := FileExtractor{}.Extract(path, types.OriginSource, false)
	require.NoError(t, err)

	assert.Equal(t, "Daft Punk", rec.Artist)
	assert.Equal(t, "One More Time (Radio Edit)", rec.Title)
	require.True(t, rec.HasDuration)
	assert.InDelta(t, 320.5, rec.DurationSec, 0.001)
}
