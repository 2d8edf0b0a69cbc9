package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// progressWriter reports how many bytes have been written through it,
// after each Write returns. Over an io.Pipe a returned Write means the HTTP
// transport has read those bytes.
type progressWriter struct {
	w          io.Writer
	sent       int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
	}
	return n, err
}

// Upload posts req as multipart/form-data to /files/upload. Non-2xx answers
// come back as *HTTPError (401 is not refreshed here: the body cannot be
// replayed). A 2xx body that does not decode yields ErrInvalidResponse.
// Cancelling ctx aborts the request and returns ctx.Err().
func (c *HTTPClient) Upload(ctx context.Context, req UploadRequest, onProgress ProgressFunc) (*UploadResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeMultipart(mw, req, onProgress)
		_ = pw.CloseWithError(err)
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/upload", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		_ = pr.Close()
		return nil, mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}

	var out UploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &out, nil
}

func writeMultipart(mw *multipart.Writer, req UploadRequest, onProgress ProgressFunc) error {
	if req.Overwrite {
		if err := mw.WriteField("overwrite", "true"); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", req.Filename)
	if err != nil {
		return err
	}

	dst := &progressWriter{w: part, total: req.Size, onProgress: onProgress}
	if _, err := io.Copy(dst, req.Body); err != nil {
		return err
	}
	return mw.Close()
}
