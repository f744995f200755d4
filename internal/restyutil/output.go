package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FilesystemOutput writes every exchange to its own file in a directory.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("create exchange dir: %w", err)
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0o600)
	if err != nil {
		slog.Warn("failed to write exchange file", "id", id, "err", err)
	}
}

// MemoryOutput keeps exchanges in memory.
type MemoryOutput struct {
	mu       sync.Mutex
	Messages map[string]string
}

func NewMemoryOutput() *MemoryOutput {
	return &MemoryOutput{Messages: map[string]string{}}
}

func (o *MemoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Messages[id] = contents
}

func (o *MemoryOutput) Get(id string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	msg, ok := o.Messages[id]
	return msg, ok
}
