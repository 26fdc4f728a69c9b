package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/ghsbrowse/ghsbrowse/internal/metrics"
	"github.com/ghsbrowse/ghsbrowse/pkg/protocol"
	"github.com/ghsbrowse/ghsbrowse/pkg/retry"
)

// Upload sends one file as a multipart POST to dir. The body is streamed;
// size is only used for the cap check and may be -1 when unknown.
func (c *Client) Upload(ctx context.Context, dir, name string, content io.Reader, size int64) (*protocol.UploadResponse, error) {
	if size > c.maxUploadSize {
		metrics.RecordUpload(size, false)
		return nil, fmt.Errorf("%s (%d bytes): %w", name, size, ErrTooLarge)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(protocol.FieldFile, name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		// One byte over the cap is enough to detect an unknown-size overrun.
		n, err := io.Copy(part, io.LimitReader(content, c.maxUploadSize+1))
		if err == nil && n > c.maxUploadSize {
			err = fmt.Errorf("%s: %w", name, ErrTooLarge)
		}
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	result, err := retry.Do(ctx, retry.Once(), func(ctx context.Context) (*protocol.UploadResponse, error) {
		resp, err := c.send(ctx, http.MethodPost, dir, pr, http.Header{
			"Content-Type": {mw.FormDataContentType()},
		})
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		var out protocol.UploadResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			// Older servers answer with plain text.
			out.Success = true
		}
		return &out, nil
	})
	// Unblock the writer goroutine if the request ended early.
	pr.CloseWithError(io.ErrClosedPipe)

	metrics.RecordUpload(max(size, 0), err == nil)
	if err != nil {
		return nil, err
	}
	return result, nil
}
