// Package wav encodes raw PCM into self-contained WAV containers and merges
// encoded segments back into a single container.
package wav

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Container format constants. All generated audio is 16-bit mono PCM.
const (
	HeaderSize = 44

	numChannels   = 1
	bitsPerSample = 16

	// MergeSampleRate is the fixed rate merged output is encoded at.
	MergeSampleRate = 24000
)

// Encode wraps little-endian 16-bit mono PCM samples in a standard 44-byte
// WAV header followed by the payload.
func Encode(pcm []byte, sampleRate int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	buf := make([]byte, HeaderSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM format tag
	binary.LittleEndian.PutUint16(buf[22:24], numChannels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[HeaderSize:], pcm)
	return buf
}

// Source is a fetchable encoded segment.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads an encoded segment from the local filesystem.
type FileSource string

// Open opens the underlying file.
func (f FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	return os.Open(string(f))
}

// HTTPSource fetches an encoded segment over HTTP.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// Open issues the fetch and returns the response body.
func (h HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch segment: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch segment: status code %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Merge fetches each encoded segment, strips its 44-byte header, concatenates
// the PCM payloads in input order, and re-encodes the result as one container
// at MergeSampleRate. Segments too short to contain a full header contribute
// no bytes. Sample rate and channel layout are assumed uniform across inputs
// and are not verified.
func Merge(ctx context.Context, sources []Source) ([]byte, error) {
	var pcm []byte
	for i, src := range sources {
		data, err := readSource(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("failed to read segment %d: %w", i, err)
		}
		if len(data) <= HeaderSize {
			continue
		}
		pcm = append(pcm, data[HeaderSize:]...)
	}
	return Encode(pcm, MergeSampleRate), nil
}

func readSource(ctx context.Context, src Source) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
