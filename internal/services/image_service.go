package services

import (
	"fmt"
	"image"
	"image/gif"
	_ "image/gif"
	"image/jpeg"
	_ "image/jpeg"
	"image/png"
	_ "image/png"

	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AllowedExtensions - разрешенные расширения загружаемых файлов.
var AllowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// allowedImageTypes - разрешенные MIME-типы, определенные по содержимому.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// ProcessAndSaveImage проверяет и сохраняет загруженное изображение.
// Проверки: расширение из белого списка, реальный MIME-тип по первым 512
// байтам, успешное декодирование. Файл перекодируется при сохранении -
// это заодно отбрасывает большинство метаданных. Имя на сервере
// генерируется из UUID, расширение берется от фактического формата.
// Возвращает имя сохраненного файла.
func ProcessAndSaveImage(fileHeader *multipart.FileHeader, uploadDir string) (storedFilename string, err error) {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !AllowedExtensions[ext] {
		return "", fmt.Errorf("недопустимое расширение файла: %s", ext)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("не удалось открыть загруженный файл: %w", err)
	}
	defer file.Close()

	// Определяем реальный тип по содержимому, а не по расширению.
	buffer := make([]byte, 512)
	_, err = file.Read(buffer)
	if err != nil && err != io.EOF { // EOF не ошибка: файл может быть меньше 512 байт
		return "", fmt.Errorf("не удалось прочитать первые 512 байт файла: %w", err)
	}
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("не удалось вернуть указатель файла в начало: %w", err)
	}

	contentType := http.DetectContentType(buffer)
	if !allowedImageTypes[contentType] {
		return "", fmt.Errorf("недопустимый тип файла: %s", contentType)
	}

	img, detectedFormat, err := image.Decode(file)
	if err != nil {
		// Файл поврежден или не является изображением.
		return "", fmt.Errorf("не удалось декодировать изображение: %w", err)
	}

	// Расширение берем от формата, который увидел декодер.
	storedFilename = uuid.NewString() + "." + detectedFormat
	filePath := filepath.Join(uploadDir, storedFilename)

	outFile, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("не удалось создать файл на сервере (%s): %w", filePath, err)
	}
	defer outFile.Close()

	switch detectedFormat {
	case "jpeg":
		err = jpeg.Encode(outFile, img, nil)
	case "png":
		err = png.Encode(outFile, img)
	case "gif":
		err = gif.Encode(outFile, img, nil)
	default:
		err = fmt.Errorf("неизвестный формат изображения: %s", detectedFormat)
	}
	if err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("не удалось закодировать и сохранить изображение: %w", err)
	}

	log.Printf("Изображение сохранено как %s (формат: %s)", storedFilename, detectedFormat)
	return storedFilename, nil
}

// GetImageContentType определяет Content-Type по расширению для отдачи
// файла клиенту.
func GetImageContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
