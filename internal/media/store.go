// Package media guarda en almacenamiento de objetos los archivos subidos
// (videos de clases, miniaturas de cursos y fotos de perfil).
package media

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Kind clasifica el archivo y define la carpeta y los tipos aceptados.
type Kind string

const (
	KindThumbnail Kind = "thumbnails"
	KindPhoto     Kind = "photos"
	KindVideo     Kind = "videos"
)

var (
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrStoreDisabled    = errors.New("media store disabled")
)

// File es un archivo recibido por multipart.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Store sube archivos y devuelve la URL pública con la que se referencian.
type Store interface {
	Upload(ctx context.Context, kind Kind, file File) (string, error)
	Delete(ctx context.Context, url string) error
}

// Accepts indica si el content type corresponde al tipo de archivo.
func (k Kind) Accepts(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch k {
	case KindThumbnail, KindPhoto:
		return strings.HasPrefix(ct, "image/")
	case KindVideo:
		return strings.HasPrefix(ct, "video/")
	}
	return false
}

// objectKey arma "<kind>/<uuid><ext>"; el nombre original sólo aporta la extensión.
func objectKey(kind Kind, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 10 {
		ext = ""
	}
	return string(kind) + "/" + uuid.NewString() + ext
}

type disabledStore struct{}

// NewDisabledStore se usa cuando no hay almacenamiento configurado.
func NewDisabledStore() Store {
	return disabledStore{}
}

func (disabledStore) Upload(context.Context, Kind, File) (string, error) {
	return "", ErrStoreDisabled
}

func (disabledStore) Delete(context.Context, string) error {
	return nil
}
