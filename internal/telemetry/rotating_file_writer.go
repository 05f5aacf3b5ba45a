// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package telemetry

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultLogNamePrefix = Namespace
	defaultFileSizeMaxKb = int64(1024)
	defaultFileCountMax  = 100
	traceFileExt         = ".jsonl"
)

type writerConfig struct {
	folder        string
	prefix        string
	fileSizeMaxKb int64
	fileCountMax  int
}

// WriterOption configures a RotatingFileWriter.
type WriterOption func(*writerConfig)

// WithTracingFolderPath sets the folder the trace files are written to.
func WithTracingFolderPath(path string) WriterOption {
	return func(cfg *writerConfig) { cfg.folder = path }
}

// WithLogNamePrefix sets the name prefix of the trace files.
func WithLogNamePrefix(prefix string) WriterOption {
	return func(cfg *writerConfig) { cfg.prefix = prefix }
}

// WithFileSizeMaxKb sets the size after which a new file is started.
// Values below the default are raised to the default.
func WithFileSizeMaxKb(kb int64) WriterOption {
	return func(cfg *writerConfig) { cfg.fileSizeMaxKb = kb }
}

// WithFileCountMax sets how many files are kept. Values below the
// default are raised to the default.
func WithFileCountMax(n int) WriterOption {
	return func(cfg *writerConfig) { cfg.fileCountMax = n }
}

func newWriterConfig(opts ...WriterOption) (cfg writerConfig, err error) {
	cfg = writerConfig{
		prefix:        defaultLogNamePrefix,
		fileSizeMaxKb: defaultFileSizeMaxKb,
		fileCountMax:  defaultFileCountMax,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if strings.TrimSpace(cfg.folder) == "" {
		if cfg.folder, err = defaultTracingFolderPath(); err != nil {
			return
		}
	}
	if strings.TrimSpace(cfg.prefix) == "" {
		cfg.prefix = defaultLogNamePrefix
	}
	if err = os.MkdirAll(cfg.folder, 0o755); err != nil {
		return
	}

	// make sure the folder is writable before anything is traced
	probe, err := os.CreateTemp(cfg.folder, cfg.prefix)
	if err != nil {
		return
	}
	defer func() {
		_ = probe.Close()
		_ = os.Remove(probe.Name())
	}()
	if _, err = probe.WriteString("file started"); err != nil {
		return
	}

	cfg.fileSizeMaxKb = max(defaultFileSizeMaxKb, cfg.fileSizeMaxKb)
	cfg.fileCountMax = max(defaultFileCountMax, cfg.fileCountMax)
	return
}

func defaultTracingFolderPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vecsql", "traces"), nil
}

// RotatingFileWriter appends to trace files named
// "<prefix>-<UTC timestamp>.jsonl" in a folder. Once the current file
// reaches the size limit a new file is started and the oldest files
// beyond the count limit are removed. It is safe for concurrent use.
type RotatingFileWriter struct {
	mu sync.Mutex

	folder       string
	prefix       string
	maxFileBytes int64
	maxFiles     int
	current      *os.File
}

// NewRotatingFileWriter validates the options and returns a writer. No
// file is opened until the first Write.
func NewRotatingFileWriter(opts ...WriterOption) (*RotatingFileWriter, error) {
	cfg, err := newWriterConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &RotatingFileWriter{
		folder:       cfg.folder,
		prefix:       cfg.prefix,
		maxFileBytes: cfg.fileSizeMaxKb * 1024,
		maxFiles:     cfg.fileCountMax,
	}, nil
}

func (w *RotatingFileWriter) Folder() string { return w.folder }
func (w *RotatingFileWriter) Prefix() string { return w.prefix }

func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfFull(); err != nil {
		return 0, err
	}
	if err := w.ensureOpen(); err != nil {
		return 0, err
	}
	return w.current.Write(p)
}

// Stat describes the file currently written to.
func (w *RotatingFileWriter) Stat() (fs.FileInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil, errors.New("no trace file is open")
	}
	return w.current.Stat()
}

func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeCurrent()
}

// Clear closes the writer and removes every trace file it owns.
func (w *RotatingFileWriter) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.closeCurrent(); err != nil {
		return err
	}
	files, err := w.files()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}

func (w *RotatingFileWriter) closeCurrent() error {
	if w.current == nil {
		return nil
	}
	err := w.current.Close()
	w.current = nil
	return err
}

func (w *RotatingFileWriter) rotateIfFull() error {
	if w.current == nil {
		return nil
	}
	info, err := w.current.Stat()
	if err != nil {
		return err
	}
	if info.Size() < w.maxFileBytes {
		return nil
	}
	if err := w.closeCurrent(); err != nil {
		return err
	}
	return w.removeOldFiles()
}

func (w *RotatingFileWriter) ensureOpen() error {
	const perm = 0o666
	if w.current != nil {
		return nil
	}

	// keep appending to the newest file while it has room
	if files, err := w.files(); err == nil && len(files) > 0 {
		last := files[len(files)-1]
		if info, err := os.Stat(last); err == nil && info.Size() < w.maxFileBytes {
			if f, err := os.OpenFile(last, os.O_APPEND|os.O_WRONLY, perm); err == nil {
				w.current = f
				return nil
			}
		}
	}

	name := w.prefix + "-" + time.Now().UTC().Format("2006-01-02-15-04-05.000000000") + traceFileExt
	f, err := os.OpenFile(filepath.Join(w.folder, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	w.current = f
	return nil
}

func (w *RotatingFileWriter) removeOldFiles() error {
	files, err := w.files()
	if err != nil {
		return nil
	}
	// the file about to be created counts against the limit
	excess := len(files) + 1 - w.maxFiles
	for i := 0; i < excess && i < len(files); i++ {
		if err := os.Remove(files[i]); err != nil {
			return err
		}
	}
	return nil
}

// files lists the trace files oldest first; the timestamp in the name
// sorts lexicographically.
func (w *RotatingFileWriter) files() ([]string, error) {
	return filepath.Glob(filepath.Join(w.folder, w.prefix+"-*"+traceFileExt))
}
