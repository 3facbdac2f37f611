package credstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"
	"github.com/cmstar/go-logx"
	"github.com/fxamacker/cbor/v2"
)

// DefaultWorkFactor 是加密凭据文件时 scrypt 的默认 work factor （log2(N)），与 age 的默认值一致。
const DefaultWorkFactor = 18

// FileStoreOption 用于初始化 FileStore 。
type FileStoreOption struct {
	// Path 凭据文件的路径。文件不存在时视为空的存储，第一次写入时创建。
	Path string

	// Passphrase 用于加密凭据文件的口令，不可为空。
	Passphrase string

	// WorkFactor 是 scrypt 的 work factor ，为 0 时使用 DefaultWorkFactor 。
	// 值越大越安全，但每次读写越慢。
	WorkFactor int

	// Logger 用于记录读写文件的错误，可为 nil 表示不记录日志。
	Logger logx.Logger
}

// FileStore 将全部凭据存储在单个文件中。
// 文件内容是 CBOR 编码的条目表，整体使用 age 的 scrypt 口令方式加密。
// 写入时先写临时文件再替换原文件，读取方不会看到写了一半的数据。
//
// 同一个 FileStore 实例可并发使用；多个实例（或进程）操作同一文件时，以最后一次写入为准。
type FileStore struct {
	path       string
	passphrase string
	workFactor int
	logger     logx.Logger

	mu sync.RWMutex
}

var _ EntryStore = (*FileStore)(nil)

// fileEntry 是条目在文件中的形式。
type fileEntry struct {
	Value         []byte        `cbor:"1,keyasint"`
	Accessibility Accessibility `cbor:"2,keyasint"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("credstore: CBOR encoder initialization failed: " + err.Error())
	}
	return em
}()

// NewFileStore 创建一个 FileStore 。此方法不会访问文件。
func NewFileStore(op FileStoreOption) (*FileStore, error) {
	if op.Path == "" {
		return nil, errors.New("path must be provided")
	}

	if op.Passphrase == "" {
		return nil, errors.New("passphrase must be provided")
	}

	workFactor := op.WorkFactor
	if workFactor == 0 {
		workFactor = DefaultWorkFactor
	}
	if workFactor < 1 || workFactor > 30 {
		return nil, fmt.Errorf("work factor must be in [1, 30], got %d", workFactor)
	}

	return &FileStore{
		path:       op.Path,
		passphrase: op.Passphrase,
		workFactor: workFactor,
		logger:     op.Logger,
	}, nil
}

// Path 返回凭据文件的路径。
func (s *FileStore) Path() string {
	return s.path
}

// Set 实现 Store.Set 。
func (s *FileStore) Set(key string, value []byte, access Accessibility) bool {
	if !access.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		s.logError("load", err)
		return false
	}

	delete(entries, key)
	entries[key] = fileEntry{
		Value:         cloneBytes(value),
		Accessibility: access,
	}

	if err := s.save(entries); err != nil {
		s.logError("save", err)
		return false
	}
	return true
}

// Get 实现 Store.Get 。
func (s *FileStore) Get(key string) ([]byte, bool) {
	e, ok := s.Entry(key)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Entry 实现 EntryStore.Entry 。
func (s *FileStore) Entry(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.load()
	if err != nil {
		s.logError("load", err)
		return Entry{}, false
	}

	e, ok := entries[key]
	if !ok {
		return Entry{}, false
	}

	return Entry{
		Key:           key,
		Value:         e.Value,
		Accessibility: e.Accessibility,
	}, true
}

// Delete 实现 Store.Delete 。
func (s *FileStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		s.logError("load", err)
		return false
	}

	if _, ok := entries[key]; !ok {
		return true
	}

	delete(entries, key)
	if err := s.save(entries); err != nil {
		s.logError("save", err)
		return false
	}
	return true
}

// Clear 实现 Store.Clear 。凭据文件被删除。
func (s *FileStore) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logError("remove", err)
		return false
	}
	return true
}

// load 读取并解密凭据文件。文件不存在时返回空表。
func (s *FileStore) load() (map[string]fileEntry, error) {
	entries := make(map[string]fileEntry)

	ciphertext, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entries, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	identity, err := age.NewScryptIdentity(s.passphrase)
	if err != nil {
		return nil, fmt.Errorf("create scrypt identity: %w", err)
	}
	identity.SetMaxWorkFactor(s.workFactor)

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential file: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read decrypted credentials: %w", err)
	}

	if err := cbor.Unmarshal(plaintext, &entries); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return entries, nil
}

// save 加密并写入凭据文件。
func (s *FileStore) save(entries map[string]fileEntry) error {
	plaintext, err := encMode.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	recipient, err := age.NewScryptRecipient(s.passphrase)
	if err != nil {
		return fmt.Errorf("create scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(s.workFactor)

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return fmt.Errorf("create age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return fmt.Errorf("encrypt credentials: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize encryption: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(ciphertext.Bytes())
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, s.path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}

func (s *FileStore) logError(op string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Log(logx.LevelError, "credstore: "+op, "Path", s.path, "Error", err.Error())
}
