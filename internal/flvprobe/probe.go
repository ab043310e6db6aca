// Package flvprobe summarizes FLV recordings left on disk by the encoder.
package flvprobe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yutopp/go-flv"
	"github.com/yutopp/go-flv/tag"
)

var ErrNotFLV = errors.New("not an flv file")

const (
	tagHeaderLength  = 11
	tagSizeLength    = 4
	maxTagDataLength = 1<<24 - 1
)

// Summary describes the media found in a recording.
type Summary struct {
	Size     int64
	Duration time.Duration
	HasMedia bool
	// Truncated is set when the file does not end on a complete tag, as
	// happens when the encoder was killed mid-write.
	Truncated bool
}

// Empty reports whether no media was recorded.
func (s Summary) Empty() bool {
	return !s.HasMedia
}

// ProbeFile opens path and summarizes it from its header and last tag.
func ProbeFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Summary{}, err
	}
	return Probe(f, info.Size())
}

// Probe reads the FLV header and walks back from the end of r to the last
// complete tag. Only the header and the final tag are read, whatever the size.
func Probe(r io.ReaderAt, size int64) (Summary, error) {
	summary := Summary{Size: size}

	header, err := flv.DecodeFlvHeader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrNotFLV, err)
	}

	firstTag := int64(header.DataOffset) + tagSizeLength
	if size <= firstTag {
		summary.Truncated = size < firstTag
		return summary, nil
	}

	var trailer [tagSizeLength]byte
	if _, err := r.ReadAt(trailer[:], size-tagSizeLength); err != nil {
		return summary, fmt.Errorf("failed to read trailing tag size: %w", err)
	}
	lastSize := int64(binary.BigEndian.Uint32(trailer[:]))
	lastTag := size - tagSizeLength - lastSize
	if lastSize < tagHeaderLength || lastSize > tagHeaderLength+maxTagDataLength || lastTag < firstTag {
		// Bytes past the header but no closing tag size: media was being written.
		summary.Truncated = true
		summary.HasMedia = size-firstTag > tagHeaderLength
		return summary, nil
	}

	// Payload decode errors are ignored once the tag header has been read.
	var flvTag tag.FlvTag
	_ = tag.DecodeFlvTag(io.NewSectionReader(r, lastTag, lastSize), &flvTag)

	switch flvTag.TagType {
	case tag.TagTypeAudio, tag.TagTypeVideo:
		summary.HasMedia = true
	case tag.TagTypeScriptData:
		// A lone script tag is the metadata the encoder writes before any media.
		summary.HasMedia = lastTag > firstTag
	default:
		summary.Truncated = true
		summary.HasMedia = true
		return summary, nil
	}
	summary.Duration = time.Duration(flvTag.Timestamp) * time.Millisecond
	return summary, nil
}
