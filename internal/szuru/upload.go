package szuru

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
)

type uploadMetadata struct {
	Tags   []string `json:"tags"`
	Safety string   `json:"safety"`
	Source string   `json:"source,omitempty"`
}

// UploadPost creates a post from the file at filePath. The file is streamed
// to the board rather than buffered.
func (c *Client) UploadPost(ctx context.Context, filePath string, tags []string, safety, source string) (*Post, error) {
	if safety == "" {
		safety = SafetySafe
	}
	if tags == nil {
		tags = []string{}
	}
	metadata, err := json.Marshal(uploadMetadata{Tags: tags, Safety: safety, Source: source})
	if err != nil {
		return nil, fmt.Errorf("encode upload metadata: %w", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", filePath, err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(form, metadata, filepath.Base(filePath), file))
	}()

	var post Post
	if err := c.do(ctx, http.MethodPost, c.endpoint("api/posts/", nil), pr, form.FormDataContentType(), &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func writeUploadForm(form *multipart.Writer, metadata []byte, filename string, content io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="metadata"`)
	header.Set("Content-Type", "application/json")
	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create metadata part: %w", err)
	}
	if _, err := part.Write(metadata); err != nil {
		return fmt.Errorf("write metadata part: %w", err)
	}
	filePart, err := form.CreateFormFile("content", filename)
	if err != nil {
		return fmt.Errorf("create content part: %w", err)
	}
	if _, err := io.Copy(filePart, content); err != nil {
		return fmt.Errorf("write content part: %w", err)
	}
	return form.Close()
}
