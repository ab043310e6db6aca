package flvprobe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestProbeReadsDurationFromLastTag(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeHeader(&buf)
	writeTag(&buf, 18, 0, nil)
	writeTag(&buf, 9, 0, videoPayload())
	writeTag(&buf, 8, 23, audioPayload())
	writeTag(&buf, 9, 40, videoPayload())
	writeTag(&buf, 8, 2500, audioPayload())

	summary, err := Probe(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if summary.Duration != 2500*time.Millisecond {
		t.Fatalf("unexpected duration: %s", summary.Duration)
	}
	if summary.Empty() || summary.Truncated || summary.Size != int64(buf.Len()) {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestProbeReadsOnlyHeaderAndLastTag(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeHeader(&buf)
	for i := 0; i < 5000; i++ {
		writeTag(&buf, 9, uint32(i*40), videoPayload())
	}

	reader := &countingReaderAt{r: bytes.NewReader(buf.Bytes())}
	summary, err := Probe(reader, int64(buf.Len()))
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if summary.Duration != 4999*40*time.Millisecond {
		t.Fatalf("unexpected duration: %s", summary.Duration)
	}
	if read := reader.read.Load(); read > 64 {
		t.Fatalf("expected a bounded read, read %d of %d bytes", read, buf.Len())
	}
}

func TestProbeHeaderOnlyIsEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeHeader(&buf)

	summary, err := Probe(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !summary.Empty() || summary.Truncated {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestProbeMetadataOnlyIsEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeHeader(&buf)
	writeTag(&buf, 18, 0, nil)

	summary, err := Probe(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !summary.Empty() || summary.Truncated {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestProbeFlagsTruncatedTail(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeHeader(&buf)
	writeTag(&buf, 9, 0, videoPayload())
	writeTag(&buf, 8, 500, audioPayload())
	var partial bytes.Buffer
	writeTag(&partial, 9, 540, videoPayload())
	buf.Write(partial.Bytes()[:partial.Len()-6])

	summary, err := Probe(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !summary.Truncated || summary.Empty() {
		t.Fatalf("expected truncated media, got %+v", summary)
	}
}

func TestProbeRejectsNonFLV(t *testing.T) {
	t.Parallel()

	data := "this is not a video container"
	_, err := Probe(strings.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrNotFLV) {
		t.Fatalf("expected ErrNotFLV, got %v", err)
	}
}

func TestProbeFileReportsSize(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeHeader(&buf)
	writeTag(&buf, 8, 1000, audioPayload())

	path := filepath.Join(t.TempDir(), "a.flv")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	summary, err := ProbeFile(path)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if summary.Size != int64(buf.Len()) || summary.Duration != time.Second || summary.Empty() {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if _, err := ProbeFile(filepath.Join(t.TempDir(), "missing.flv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

type countingReaderAt struct {
	r    *bytes.Reader
	read atomic.Int64
}

func (c *countingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n, err := c.r.ReadAt(p, off)
	c.read.Add(int64(n))
	return n, err
}

func writeHeader(buf *bytes.Buffer) {
	buf.Write([]byte{'F', 'L', 'V', 0x01, 0x05, 0x00, 0x00, 0x00, 0x09})
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00})
}

func writeTag(buf *bytes.Buffer, tagType byte, timestamp uint32, payload []byte) {
	header := make([]byte, 11)
	header[0] = tagType
	header[1] = byte(len(payload) >> 16)
	header[2] = byte(len(payload) >> 8)
	header[3] = byte(len(payload))
	header[4] = byte(timestamp >> 16)
	header[5] = byte(timestamp >> 8)
	header[6] = byte(timestamp)
	header[7] = byte(timestamp >> 24)
	buf.Write(header)
	buf.Write(payload)

	prev := make([]byte, 4)
	binary.BigEndian.PutUint32(prev, uint32(len(header)+len(payload)))
	buf.Write(prev)
}

// AAC, 44kHz, 16 bit, stereo, raw packet.
func audioPayload() []byte {
	return []byte{0xAF, 0x01, 0x21, 0x10, 0x04}
}

// AVC keyframe NALU with zero composition time.
func videoPayload() []byte {
	return []byte{0x17, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x09, 0x10}
}
