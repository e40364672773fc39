package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"edunexus/internal/media"
)

const (
	maxImageSize = 5 << 20
	maxVideoSize = 500 << 20
)

// formFile abre el archivo del campo indicado. Devuelve nil si no se envió.
// El llamador debe cerrar el io.Closer devuelto.
func formFile(c *gin.Context, field string, maxSize int64) (*media.File, io.Closer, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read %s: %w", field, err)
	}
	if fh.Size > maxSize {
		return nil, nil, fmt.Errorf("%s exceeds %d MB", field, maxSize>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", field, err)
	}
	return &media.File{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}, f, nil
}

func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// optionalForm devuelve nil si el campo no llegó en el formulario.
func optionalForm(c *gin.Context, field string) *string {
	v, ok := c.GetPostForm(field)
	if !ok {
		return nil
	}
	return &v
}

func optionalFloat(c *gin.Context, field string) (*float64, error) {
	raw := optionalForm(c, field)
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", field)
	}
	return &v, nil
}

func optionalBool(c *gin.Context, field string) (*bool, error) {
	raw := optionalForm(c, field)
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", field)
	}
	return &v, nil
}
