package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
)

// 自己定義常用的權限常量
const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀) - 適用於大多數檔案
	FileModeReadOnly fs.FileMode = 0644

	// rw------- (只有擁有者可讀寫) - 適用於私鑰、機密檔
	FileModePrivate fs.FileMode = 0600
)

// WAL 是一個只能附加的 JSON Lines 檔案
type WAL struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
	// syncEveryWrite 每次 Write 都 fsync
	syncEveryWrite bool
}

// Option 定義了 WAL 的配置選項函數
type Option func(*WAL)

// WithSyncEveryWrite 設定每次 Write 後是否立即刷入硬碟 (預設 true)
func WithSyncEveryWrite(enabled bool) Option {
	return func(w *WAL) {
		w.syncEveryWrite = enabled
	}
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string, opts ...Option) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, err
	}
	w := &WAL{
		file:           file,
		writer:         bufio.NewWriter(file),
		syncEveryWrite: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Write 寫入一筆資料 (一行 JSON)
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := json.NewEncoder(w.writer).Encode(v); err != nil {
		return err
	}
	if !w.syncEveryWrite {
		return nil
	}
	return w.flushLocked()
}

// Flush 把緩衝寫入檔案並強制刷入硬碟
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *WAL) flushLocked() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close 刷入剩餘資料並關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	flushErr := w.flushLocked()
	return errors.Join(flushErr, w.file.Close())
}

// ReadAll 讀取所有資料
// callback 是一個函式，接收一個 json.RawMessage
// 這樣可以避免一次將所有資料載入記憶體
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}
	// 確保從頭讀取 (O_APPEND 下寫入仍會接在檔尾)
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return decodeAll(w.file, callback)
}

// ReadFile 以唯讀方式讀取既有的 WAL 檔案
func ReadFile(path string, callback func(jsonRaw []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return decodeAll(file, callback)
}

func decodeAll(r io.Reader, callback func(jsonRaw []byte) error) error {
	decoder := json.NewDecoder(r)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
}
