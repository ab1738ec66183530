package imagestore

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store 图片落到本地磁盘，返回相对引用；URL 负责把引用拼成可访问地址。
// 存储后端对上层是黑盒，换对象存储只需要换这个实现。
type Store struct {
	dir     string // 本地根目录
	baseURL string // URL 前缀，例如 http://host/media
}

func New(dir, baseURL string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("media dir is empty")
	}
	if err := os.MkdirAll(filepath.Join(dir, "vehicles"), 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// SaveUpload 保存一个上传文件，返回相对引用（vehicles/<uuid><ext>）。
func (s *Store) SaveUpload(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", fmt.Errorf("file header is nil")
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	ref := path.Join("vehicles", uuid.NewString()+ext)

	dst, err := os.Create(filepath.Join(s.dir, filepath.FromSlash(ref)))
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return ref, nil
}

// URL 把相对引用解析成完整访问地址。
func (s *Store) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.baseURL + "/" + strings.TrimLeft(ref, "/")
}

// Remove 删除一个引用对应的文件；引用不存在不算错误。
func (s *Store) Remove(ref string) error {
	if ref == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(ref)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Dir 本地根目录（静态文件路由用）。
func (s *Store) Dir() string {
	return s.dir
}
