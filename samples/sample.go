package samples

import (
	"io"
	"os"

	"github.com/t2bot/synthkit/common"
)

// Sample is a sound file on disk. Temporary samples own their file and remove it on Release.
type Sample struct {
	path      string
	temporary bool
}

func NewSample(path string) *Sample {
	return &Sample{path: path}
}

// NewTemporarySample reserves an empty file in dir (or the system temp directory when dir is
// empty) for a sample that will be written later.
func NewTemporarySample(dir string) (*Sample, error) {
	f, err := os.CreateTemp(dir, "synthkit-*.wav")
	if err != nil {
		return nil, common.IOFailure("create temporary sample", dir, err)
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, common.IOFailure("create temporary sample", f.Name(), err)
	}
	return &Sample{path: f.Name(), temporary: true}, nil
}

func (s *Sample) Path() string {
	return s.path
}

func (s *Sample) Temporary() bool {
	return s.temporary
}

func (s *Sample) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, common.IOFailure("stat", s.path, err)
	}
	return info.Size(), nil
}

// CopyTo copies the sample's bytes over the file backing dest.
func (s *Sample) CopyTo(dest *Sample) error {
	src, err := os.Open(s.path)
	if err != nil {
		return common.IOFailure("open", s.path, err)
	}
	defer src.Close()

	dst, err := os.Create(dest.path)
	if err != nil {
		return common.IOFailure("create", dest.path, err)
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return common.IOFailure("copy", dest.path, err)
	}
	if err = dst.Close(); err != nil {
		return common.IOFailure("close", dest.path, err)
	}
	return nil
}

// Release deletes the backing file of a temporary sample. Non-temporary samples are left alone.
func (s *Sample) Release() error {
	if s == nil || !s.temporary {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return common.IOFailure("remove", s.path, err)
	}
	return nil
}
