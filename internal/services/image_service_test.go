package services

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeFileHeader собирает multipart.FileHeader из произвольного содержимого -
// так же, как его увидит обработчик после c.FormFile.
func makeFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	files := form.File["image"]
	require.Len(t, files, 1)
	return files[0]
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func TestProcessAndSaveImage(t *testing.T) {
	dir := t.TempDir()
	fh := makeFileHeader(t, "photo.png", pngBytes(t))

	stored, err := ProcessAndSaveImage(fh, dir)
	require.NoError(t, err)

	// Имя на сервере не совпадает с исходным, расширение - от фактического формата.
	assert.NotEqual(t, "photo.png", stored)
	assert.True(t, strings.HasSuffix(stored, ".png"))

	// Сохраненный файл - валидное изображение (перекодирован, не скопирован байт в байт).
	f, err := os.Open(filepath.Join(dir, stored))
	require.NoError(t, err)
	defer f.Close()
	_, format, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestProcessAndSaveImageRejectsExtension(t *testing.T) {
	fh := makeFileHeader(t, "notes.txt", []byte("just text"))
	_, err := ProcessAndSaveImage(fh, t.TempDir())
	assert.Error(t, err)
}

// Подложный файл: расширение изображения, содержимое - нет.
// Проверка по содержимому должна его отбросить.
func TestProcessAndSaveImageRejectsFakeContent(t *testing.T) {
	fh := makeFileHeader(t, "fake.png", []byte("this is definitely not a png"))
	dir := t.TempDir()

	_, err := ProcessAndSaveImage(fh, dir)
	require.Error(t, err)

	// Никаких файлов после отказа не остается.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGetImageContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/jpeg", GetImageContentType("a.jpg"))
	assert.Equal(t, "image/jpeg", GetImageContentType("a.JPEG"))
	assert.Equal(t, "image/png", GetImageContentType("a.png"))
	assert.Equal(t, "image/gif", GetImageContentType("a.gif"))
	assert.Equal(t, "application/octet-stream", GetImageContentType("a.bmp"))
}

func TestGenerateSecureToken(t *testing.T) {
	t.Parallel()

	first, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
