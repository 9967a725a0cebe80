package logging

import (
	"cmp"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// FileRotator writes to Config.FilePath and moves the file aside once a
// write would grow it past Config.MaxSize megabytes. Rotated files are named
// <name>-<timestamp><ext>, optionally gzipped, and pruned to MaxBackups.
type FileRotator struct {
	path     string
	maxBytes int64
	backups  int
	compress bool

	mu   sync.Mutex
	file *os.File
	size int64
	bg   sync.WaitGroup
}

// NewFileRotator opens or creates the log file.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	if cfg.FilePath == "" {
		return nil, errors.New("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	r := &FileRotator{
		path:     cfg.FilePath,
		maxBytes: cfg.MaxSize << 20,
		backups:  cfg.MaxBackups,
		compress: cfg.Compress,
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	r.file, r.size = f, st.Size()
	return nil
}

// Write implements io.Writer.
func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	if r.maxBytes > 0 && r.size > 0 && r.size+int64(len(p)) > r.maxBytes {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *FileRotator) rotate() error {
	err := r.file.Close()
	r.file = nil
	if err != nil {
		return fmt.Errorf("close current log: %w", err)
	}

	stem, ext := r.split()
	aside := filepath.Join(filepath.Dir(r.path),
		stem+"-"+time.Now().Format("20060102-150405.000")+ext)
	if err := os.Rename(r.path, aside); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rename log file: %w", err)
	}

	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		if r.compress {
			if err := gzipFile(aside); err == nil {
				os.Remove(aside)
			}
		}
		r.prune()
	}()
	return r.open()
}

func (r *FileRotator) split() (stem, ext string) {
	base := filepath.Base(r.path)
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

func gzipFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(path)
	_, err = io.Copy(zw, in)
	err = errors.Join(err, zw.Close(), out.Close())
	if err != nil {
		os.Remove(path + ".gz")
	}
	return err
}

func (r *FileRotator) prune() {
	if r.backups <= 0 {
		return
	}
	old, err := r.rotated()
	if err != nil || len(old) <= r.backups {
		return
	}
	for _, p := range old[:len(old)-r.backups] {
		os.Remove(p)
	}
}

// rotated lists rotated files, oldest first.
func (r *FileRotator) rotated() ([]string, error) {
	stem, ext := r.split()
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(r.path), stem+"-*"+ext+"*"))
	if err != nil {
		return nil, err
	}

	mtimes := make(map[string]time.Time, len(matches))
	kept := matches[:0]
	for _, m := range matches {
		if st, err := os.Stat(m); err == nil {
			mtimes[m] = st.ModTime()
			kept = append(kept, m)
		}
	}
	slices.SortFunc(kept, func(a, b string) int {
		if c := mtimes[a].Compare(mtimes[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return kept, nil
}

// LogFiles returns the live log file followed by the rotated ones.
func (r *FileRotator) LogFiles() ([]string, error) {
	old, err := r.rotated()
	return append([]string{r.path}, old...), err
}

// Close waits for background compression and closes the live file.
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bg.Wait()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Sync flushes the live file to disk.
func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}
