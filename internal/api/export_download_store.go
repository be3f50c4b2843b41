package api

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// exportTTL 导出文件保留时长；过期未下载的文件随清理删除
const exportTTL = 10 * time.Minute

type exportDownload struct {
	filePath  string
	filename  string
	expiresAt time.Time
}

// exportDownloadStore 导出文件的一次性下载令牌
type exportDownloadStore struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]exportDownload
}

func newExportDownloadStore(now func() time.Time) *exportDownloadStore {
	if now == nil {
		now = time.Now
	}
	return &exportDownloadStore{
		now:   now,
		items: make(map[string]exportDownload),
	}
}

func (s *exportDownloadStore) put(filePath, filename string, ttl time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeLocked(now)

	token := uuid.NewString()
	s.items[token] = exportDownload{
		filePath:  filePath,
		filename:  filename,
		expiresAt: now.Add(ttl),
	}
	return token
}

// take 取出并作废令牌
func (s *exportDownloadStore) take(token string) (exportDownload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(s.now())

	v, ok := s.items[token]
	if ok {
		delete(s.items, token)
	}
	return v, ok
}

func (s *exportDownloadStore) purgeLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			_ = os.Remove(v.filePath)
			delete(s.items, k)
		}
	}
}
