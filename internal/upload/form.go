package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// FormField is one signer-supplied form field. Order matters: some
// signers reject forms whose policy fields arrive after the file part or
// out of the order they were issued in.
type FormField struct {
	Name  string
	Value string
}

// multipartForm is a fully planned multipart body: everything before the
// file bytes, the file, and the closing boundary. Planning it up front
// yields the exact Content-Length without reading the file.
type multipartForm struct {
	prefix      []byte
	suffix      []byte
	filePath    string
	fileSize    int64
	contentType string
}

// buildForm renders the multipart envelope for a presigned POST: the
// signer's fields in their given order, then key, then Content-Type, then
// the file part.
func buildForm(fields []FormField, objectKey, fileContentType, filePath string) (*multipartForm, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat upload file: %w", err)
	}

	var prefix bytes.Buffer
	writer := multipart.NewWriter(&prefix)

	for _, f := range fields {
		if err := writer.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("failed to write form field %q: %w", f.Name, err)
		}
	}
	if err := writer.WriteField("key", objectKey); err != nil {
		return nil, fmt.Errorf("failed to write key field: %w", err)
	}
	if err := writer.WriteField("Content-Type", fileContentType); err != nil {
		return nil, fmt.Errorf("failed to write Content-Type field: %w", err)
	}

	// CreateFormFile fixes the part headers in the prefix; the actual
	// bytes stream later.
	if _, err := writer.CreateFormFile("file", filepath.Base(filePath)); err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}

	// The closing boundary follows the file bytes.
	suffix := fmt.Sprintf("\r\n--%s--\r\n", writer.Boundary())

	return &multipartForm{
		prefix:      prefix.Bytes(),
		suffix:      []byte(suffix),
		filePath:    filePath,
		fileSize:    info.Size(),
		contentType: writer.FormDataContentType(),
	}, nil
}

// contentLength is the exact byte length of the full body.
func (m *multipartForm) contentLength() int64 {
	return int64(len(m.prefix)) + m.fileSize + int64(len(m.suffix))
}

// open returns the body reader and a closer for the underlying file.
func (m *multipartForm) open() (io.Reader, io.Closer, error) {
	file, err := os.Open(m.filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open upload file: %w", err)
	}
	body := io.MultiReader(
		bytes.NewReader(m.prefix),
		file,
		bytes.NewReader(m.suffix),
	)
	return body, file, nil
}
