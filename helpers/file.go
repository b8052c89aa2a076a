package helpers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const uploadDir = "./public/uploads"

// DownloadImage fetches a remote image into the local uploads folder and
// returns the stored path. Media upload needs a file on disk rather than a
// URL.
func DownloadImage(imageURL string) (string, error) {
	if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
		if err := os.MkdirAll(uploadDir, os.ModePerm); err != nil {
			return "", err
		}
	}

	filename := uuid.NewString() + fileExtension(imageURL)
	path := filepath.Join(uploadDir, filename)

	response, err := http.Get(imageURL)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download image: unexpected status %d", response.StatusCode)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, response.Body); err != nil {
		return "", err
	}

	return "./" + path, nil
}

func fileExtension(url string) string {
	withoutQuery := strings.Split(url, "?")[0]
	parts := strings.Split(withoutQuery, "/")
	return filepath.Ext(parts[len(parts)-1])
}
