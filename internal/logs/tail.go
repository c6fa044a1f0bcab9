package logs

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// tailPollInterval is how often the tailer checks a quiet file for growth.
const tailPollInterval = time.Second

// Tailer follows one log file and feeds complete lines to the aggregator.
// It starts at the end of the file, survives the file being absent, rotated
// or truncated, and only ever blocks itself.
type Tailer struct {
	path string
	out  chan<- string
	poll time.Duration
}

// NewTailer creates a tailer for path writing into out.
func NewTailer(path string, out chan<- string) *Tailer {
	return &Tailer{
		path: path,
		out:  out,
		poll: tailPollInterval,
	}
}

// Run follows the file until ctx is canceled.
func (t *Tailer) Run(ctx context.Context) {
	slog.Info("Starting log file tailer", "path", t.path)

	var file *os.File
	var reader *bufio.Reader
	var offset int64
	var partial strings.Builder
	seekEnd := true // only the first open skips history

	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	for {
		if ctx.Err() != nil {
			slog.Info("Log file tailer stopped", "path", t.path)
			return
		}

		if file == nil {
			f, err := os.Open(t.path)
			if err != nil {
				// A file that appears after startup is all new content and is
				// read from the start.
				seekEnd = false
				if !t.sleep(ctx) {
					return
				}
				continue
			}
			if seekEnd {
				if pos, err := f.Seek(0, io.SeekEnd); err == nil {
					offset = pos
				}
				seekEnd = false
			} else {
				offset = 0
			}
			file = f
			reader = bufio.NewReader(file)
			partial.Reset()
			slog.Info("Tailing log file", "path", t.path, "offset", offset)
		}

		chunk, err := reader.ReadString('\n')
		offset += int64(len(chunk))
		if err == nil {
			partial.WriteString(strings.TrimRight(chunk, "\n"))
			line := partial.String()
			partial.Reset()
			select {
			case t.out <- line:
			case <-ctx.Done():
				return
			}
			continue
		}
		if err != io.EOF {
			slog.Warn("Failed to read log file, reopening", "path", t.path, "error", err)
			file.Close()
			file = nil
			if !t.sleep(ctx) {
				return
			}
			continue
		}

		// EOF: keep the partial line for the next read and check whether the
		// file was truncated or rotated underneath us.
		partial.WriteString(chunk)
		if t.truncated(offset) {
			slog.Info("Log file truncated or rotated, reopening", "path", t.path)
			file.Close()
			file = nil
			continue
		}
		if !t.sleep(ctx) {
			return
		}
	}
}

// truncated reports whether the file on disk is now smaller than the read
// offset, which means it was rewritten from the start.
func (t *Tailer) truncated(offset int64) bool {
	info, err := os.Stat(t.path)
	if err != nil {
		return true
	}
	return info.Size() < offset
}

func (t *Tailer) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(t.poll):
		return true
	}
}
