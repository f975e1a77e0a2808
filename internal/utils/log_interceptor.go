package utils

import (
	"bytes"
	"io"
	"strconv"
	"sync"
)

// LogInterceptor numbers every complete line written through it before
// passing it on to target. Partial lines are held until their newline arrives
// or Close is called.
type LogInterceptor struct {
	target  io.Writer
	seq     uint64
	pending bytes.Buffer
	mu      sync.Mutex
}

func NewLogInterceptor(target io.Writer) *LogInterceptor {
	return &LogInterceptor{target: target}
}

func (i *LogInterceptor) Write(p []byte) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.pending.Write(p)
	for {
		idx := bytes.IndexByte(i.pending.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := i.pending.Next(idx + 1)
		if err := i.writeLine(line); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Close flushes a trailing partial line.
func (i *LogInterceptor) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.pending.Len() == 0 {
		return nil
	}
	line := append(i.pending.Bytes(), '\n')
	i.pending.Reset()
	return i.writeLine(line)
}

func (i *LogInterceptor) writeLine(line []byte) error {
	i.seq++
	buf := make([]byte, 0, len(line)+16)
	buf = append(buf, "line="...)
	buf = strconv.AppendUint(buf, i.seq, 10)
	buf = append(buf, ' ')
	buf = append(buf, line...)
	_, err := i.target.Write(buf)
	return err
}
