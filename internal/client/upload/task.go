package upload

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Status is the lifecycle position of one upload task.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusUploading:
		return 1
	case StatusProcessing:
		return 2
	case StatusCompleted, StatusFailed:
		return 3
	default:
		return -1
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Active reports whether a task in this status belongs in the registry.
func (s Status) Active() bool {
	return s == StatusQueued || s == StatusUploading || s == StatusProcessing
}

// Progress is a byte count snapshot. The zero value means "not started".
type Progress struct {
	BytesSent  int64
	TotalBytes int64
	Percentage int
}

// percentOf rounds sent/total to a whole percentage.
func percentOf(sent, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(sent) / float64(total) * 100))
}

// File is an immutable handle on the bytes to upload. Open may be called
// more than once (e.g. on a manual retry).
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileFromPath stats path and opens it lazily.
func FileFromPath(path string) (File, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if fi.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	return File{
		Name: filepath.Base(path),
		Size: fi.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FileFromBytes wraps an in-memory payload.
func FileFromBytes(name string, data []byte) File {
	return File{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Task is a point-in-time copy of an upload's state.
type Task struct {
	ID       string
	Filename string
	Status   Status
	Progress Progress
	Err      error
}

// Event is published on every status change and every progress advance.
type Event struct {
	TaskID   string
	Status   Status
	Progress Progress
	Err      error
}
