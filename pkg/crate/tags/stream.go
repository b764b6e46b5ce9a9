package tags

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac/meta"

	"github.com/jamesainslie/crate/pkg/crate/types"
)

// streamInfo holds the properties read from an audio stream header.
type streamInfo struct {
	duration      float64
	hasDuration   bool
	bitrateKbps   int
	sampleRate    int
	bitsPerSample int
}

// readStream fills duration and quality fields for the formats crate can
// decode. Other containers keep unknown quality.
func readStream(rec *types.TrackFile) {
	var (
		info streamInfo
		err  error
	)

	func() {
		// decoders can panic on corrupt input
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("decoder panic: %v", r)
			}
		}()

		switch strings.ToLower(filepath.Ext(rec.Path)) {
		case ".flac":
			info, err = flacInfo(rec.Path)
		case ".mp3":
			info, err = mp3Info(rec.Path)
		case ".wav":
			info, err = wavInfo(rec)
		default:
			return
		}
	}()

	if err != nil {
		logger.Debug("stream info unavailable", "path", rec.Path, "error", err)
	}

	rec.DurationSec = info.duration
	rec.HasDuration = info.hasDuration
	rec.SampleRate = info.sampleRate
	rec.BitsPerSample = info.bitsPerSample
	rec.BitrateKbps = info.bitrateKbps
	if rec.BitrateKbps == 0 && info.hasDuration && info.duration > 0 {
		rec.BitrateKbps = int(math.Round(float64(rec.SizeBytes) * 8 / info.duration / 1000))
	}
}

// flacInfo parses only the leading STREAMINFO block, after checking its
// header by hand. Block lengths read from the file are never trusted for
// any other block type.
func flacInfo(path string) (streamInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return streamInfo{}, err
	}
	defer f.Close()

	var hdr [8]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return streamInfo{}, fmt.Errorf("reading flac header: %w", err)
	}
	if string(hdr[:4]) != "fLaC" {
		return streamInfo{}, errors.New("missing flac signature")
	}
	blockType := hdr[4] & 0x7f
	blockLen := int(hdr[5])<<16 | int(hdr[6])<<8 | int(hdr[7])
	if blockType != byte(meta.TypeStreamInfo) || blockLen != streamInfoLen {
		return streamInfo{}, fmt.Errorf("first flac block is type %d length %d, want STREAMINFO", blockType, blockLen)
	}
	if _, err := f.Seek(4, io.SeekStart); err != nil {
		return streamInfo{}, err
	}

	block, err := meta.New(f)
	if err != nil {
		return streamInfo{}, err
	}
	if err := block.Parse(); err != nil {
		return streamInfo{}, err
	}
	si, ok := block.Body.(*meta.StreamInfo)
	if !ok {
		return streamInfo{}, errors.New("flac STREAMINFO not parsed")
	}

	out := streamInfo{
		sampleRate:    int(si.SampleRate),
		bitsPerSample: int(si.BitsPerSample),
	}
	if si.SampleRate > 0 && si.NSamples > 0 {
		out.duration = float64(si.NSamples) / float64(si.SampleRate)
		out.hasDuration = true
	}
	return out, nil
}

// streamInfoLen is the fixed body size of a FLAC STREAMINFO block.
const streamInfoLen = 34

// mp3Info prefers the ID3 TLEN frame for duration and falls back to
// scanning MPEG frames.
func mp3Info(path string) (streamInfo, error) {
	var out streamInfo

	if ms, ok := id3Length(path); ok {
		out.duration = ms.Seconds()
		out.hasDuration = true
	}

	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return out, err
	}
	out.sampleRate = dec.SampleRate()

	// Length is in bytes of 16-bit stereo PCM.
	if !out.hasDuration && dec.Length() > 0 && out.sampleRate > 0 {
		out.duration = float64(dec.Length()) / 4 / float64(out.sampleRate)
		out.hasDuration = true
	}
	return out, nil
}

func id3Length(path string) (time.Duration, bool) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{"TLEN"}})
	if err != nil {
		return 0, false
	}
	defer t.Close()

	tf := t.GetTextFrame("TLEN")
	ms, err := strconv.ParseInt(strings.TrimSpace(tf.Text), 10, 64)
	if err != nil || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// wavInfo reads the fmt chunk and, since tag readers skip RIFF INFO
// chunks, artist and title when the tag pass found none.
func wavInfo(rec *types.TrackFile) (streamInfo, error) {
	f, err := os.Open(rec.Path)
	if err != nil {
		return streamInfo{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return streamInfo{}, fmt.Errorf("invalid wav file")
	}

	out := streamInfo{
		sampleRate:    int(d.SampleRate),
		bitsPerSample: int(d.BitDepth),
		bitrateKbps:   int(math.Round(float64(d.AvgBytesPerSec) * 8 / 1000)),
	}
	if dur, err := d.Duration(); err == nil && dur > 0 {
		out.duration = dur.Seconds()
		out.hasDuration = true
	}

	if rec.Artist == "" && rec.Title == "" {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			md := wav.NewDecoder(f)
			md.ReadMetadata()
			if md.Err() == nil && md.Metadata != nil {
				rec.Artist = strings.TrimSpace(md.Metadata.Artist)
				rec.Title = strings.TrimSpace(md.Metadata.Title)
			}
		}
	}
	return out, nil
}
