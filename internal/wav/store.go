package wav

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/podforge/podforge/podcast"
)

// DirStore keeps encoded segments as files in a directory and hands out file
// paths as the playable-audio handles the session tracks.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if needed and returns a store rooted there.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create segment directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// StoreSegment writes one encoded segment and returns its handle. The epoch is
// part of the filename so superseded sessions never overwrite current ones.
func (s *DirStore) StoreSegment(epoch int64, index int, data []byte) (podcast.AudioSegment, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("segment_e%d_%03d.wav", epoch, index))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return podcast.AudioSegment{}, fmt.Errorf("failed to write segment: %w", err)
	}
	return podcast.AudioSegment{Index: index, URL: path}, nil
}
