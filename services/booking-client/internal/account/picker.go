package account

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

const (
	DefaultAvatarContentType = "image/jpeg"
	maxAvatarBytes           = 5 << 20
)

var (
	ErrPickCancelled      = errors.New("image pick cancelled")
	ErrAvatarUpdateFailed = errors.New("avatar update failed")
)

type Picked struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Picker produces one image or ErrPickCancelled.
type Picker interface {
	Pick(ctx context.Context) (Picked, error)
}

type PickerFunc func(ctx context.Context) (Picked, error)

func (f PickerFunc) Pick(ctx context.Context) (Picked, error) { return f(ctx) }

// FilePicker reads an image from disk. An empty Path counts as a cancelled pick.
type FilePicker struct {
	Path string
}

func (p FilePicker) Pick(ctx context.Context) (Picked, error) {
	if err := ctx.Err(); err != nil {
		return Picked{}, err
	}
	if p.Path == "" {
		return Picked{}, ErrPickCancelled
	}
	info, err := os.Stat(p.Path)
	if err != nil {
		return Picked{}, err
	}
	if info.IsDir() {
		return Picked{}, fmt.Errorf("%s is a directory", p.Path)
	}
	if info.Size() > maxAvatarBytes {
		return Picked{}, fmt.Errorf("%s is larger than %d bytes", p.Path, maxAvatarBytes)
	}
	content, err := os.ReadFile(p.Path)
	if err != nil {
		return Picked{}, err
	}
	contentType := http.DetectContentType(content)
	if contentType == "application/octet-stream" {
		contentType = DefaultAvatarContentType
	}
	return Picked{
		Filename:    filepath.Base(p.Path),
		ContentType: contentType,
		Content:     content,
	}, nil
}
