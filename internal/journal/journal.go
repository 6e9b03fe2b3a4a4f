// Package journal appends every world notification to hourly zstd
// compressed JSONL files for offline replay and auditing.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/hearthstead/internal/protocol"
)

// queueSize bounds how many entries may wait for the writer goroutine.
const queueSize = 4096

// Entry is one journal line.
type Entry struct {
	Time time.Time             `json:"time"`
	Type string                `json:"type"`
	Data protocol.Notification `json:"data"`
}

// Writer implements protocol.Broadcaster. Broadcast never blocks: entries
// are queued and written by a background goroutine, and dropped with a
// warning when the queue is full.
type Writer struct {
	dir    string
	prefix string
	now    func() time.Time

	queue chan Entry
	wg    sync.WaitGroup
	once  sync.Once

	// Owned by the writer goroutine.
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// Open starts a writer that rotates files named <prefix>-YYYY-MM-DD-HH.jsonl.zst
// under dir.
func Open(dir, prefix string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	w := &Writer{
		dir:    dir,
		prefix: prefix,
		now:    func() time.Time { return time.Now().UTC() },
		queue:  make(chan Entry, queueSize),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Broadcast implements protocol.Broadcaster.
func (w *Writer) Broadcast(n protocol.Notification) {
	e := Entry{Time: w.now(), Type: n.Type(), Data: n}
	select {
	case w.queue <- e:
	default:
		slog.Warn("journal queue full, dropping entry", "type", e.Type)
	}
}

// Close drains the queue and flushes the current file. Broadcast must not
// be called after Close.
func (w *Writer) Close() error {
	w.once.Do(func() { close(w.queue) })
	w.wg.Wait()
	return w.closeFile()
}

func (w *Writer) run() {
	defer w.wg.Done()
	for e := range w.queue {
		if err := w.write(e); err != nil {
			slog.Error("journal write failed", "type", e.Type, "error", err)
		}
	}
}

func (w *Writer) write(e Entry) error {
	hour := e.Time.UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotate(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	// Emit a complete zstd block so the line survives a crash before rotation.
	return w.enc.Flush()
}

func (w *Writer) rotate(hour string) error {
	if err := w.closeFile(); err != nil {
		slog.Warn("journal close on rotate", "error", err)
	}
	f, err := os.OpenFile(w.path(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc = f, enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeFile() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.curHour = ""
	return err
}

func (w *Writer) path(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ReadFile decodes one journal file. Entry data is left as raw JSON.
func ReadFile(path string) ([]RawEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []RawEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var e RawEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("decode journal line %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// RawEntry is a decoded journal line.
type RawEntry struct {
	Time time.Time       `json:"time"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
