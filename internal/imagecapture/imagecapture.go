// Package imagecapture turns an uploaded image into bytes that can be stored with a contact, and
// stored bytes back into a reference that a browser can display.
package imagecapture

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"strings"

	"gitlab.com/dirk.krummacker/contacts-service/internal/apperr"
	"gitlab.com/dirk.krummacker/contacts-service/internal/model"
)

// Upload is an uploaded file: its content and the MIME type declared by the client.
type Upload struct {
	Reader      io.Reader
	ContentType string
}

// Image is a captured upload.
type Image struct {
	Bytes []byte
	Type  string
}

// Capture reads the whole upload. The declared MIME type is required because the stored bytes
// are useless without it. No size limit is enforced here.
func Capture(upload Upload) (*Image, error) {
	mimeType, err := mediaType(upload.ContentType)
	if err != nil {
		return nil, err
	}
	if upload.Reader == nil {
		return nil, apperr.IOError("image upload could not be read", fmt.Errorf("no content"))
	}
	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return nil, apperr.IOError("image upload could not be read", err)
	}
	if len(data) == 0 {
		return nil, apperr.Invalid("image", "image is empty")
	}
	return &Image{Bytes: data, Type: mimeType}, nil
}

// Render returns an inline data reference for the image, or the default image reference if
// there is no image or it is empty.
func Render(data []byte, mimeType *string) (string, error) {
	if len(data) == 0 {
		return model.DefaultImage, nil
	}
	if mimeType == nil || strings.TrimSpace(*mimeType) == "" {
		return "", apperr.Invalid("image", "image type is missing")
	}
	return fmt.Sprintf("data:%s;base64,%s", *mimeType, base64.StdEncoding.EncodeToString(data)), nil
}

// mediaType normalizes a declared Content-Type value to its media type.
func mediaType(contentType string) (string, error) {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return "", apperr.Invalid("image", "image type is missing")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", apperr.Invalid("image", "image type is invalid")
	}
	return mediaType, nil
}
