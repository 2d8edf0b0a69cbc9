package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/filedash/internal/client/client"
	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/dmitrijs2005/filedash/internal/logging"
)

// Transport performs the HTTP upload. *client.HTTPClient implements it.
type Transport interface {
	Upload(ctx context.Context, req client.UploadRequest, onProgress client.ProgressFunc) (*client.UploadResponse, error)
}

// CredentialSource yields the current bearer token. It is consulted right
// before each transfer and never cached.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// CacheInvalidator drops cached listings after a successful upload.
type CacheInvalidator interface {
	Invalidate()
}

// EngineDeps are the collaborators shared by all engines of an uploader.
type EngineDeps struct {
	Transport   Transport
	Credentials CredentialSource
	Cache       CacheInvalidator
	Logger      logging.Logger
}

// Engine owns a single transfer:
//
//	queued -> uploading -> processing -> completed
//	   \          \            \-------> failed
//	    \----------\-------------------> failed (Cancelled)
//
// The first terminal write wins; later ones are ignored.
type Engine struct {
	id        string
	file      File
	overwrite bool
	deps      EngineDeps
	logger    logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	started  bool
	terminal bool
	state    Task
	response *client.UploadResponse

	events *eventQueue
	done   chan struct{}
}

func NewEngine(id string, file File, overwrite bool, deps EngineDeps) *Engine {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	return &Engine{
		id:        id,
		file:      file,
		overwrite: overwrite,
		deps:      deps,
		logger:    deps.Logger.With("module", "transfer", "upload_id", id),
		state: Task{
			ID:       id,
			Filename: file.Name,
			Status:   StatusQueued,
		},
		events: newEventQueue(),
		done:   make(chan struct{}),
	}
}

func (e *Engine) ID() string { return e.id }

// Events yields every state change in order and is closed after the
// terminal event. It must be drained.
func (e *Engine) Events() <-chan Event { return e.events.out }

// Done is closed once the engine is terminal.
func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) Snapshot() Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Result is valid after Done: the parsed server payload on success.
func (e *Engine) Result() (*client.UploadResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.response, e.state.Err
}

// Start issues the transfer on its own goroutine. Only the first call
// has an effect; a cancelled engine never starts.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started || e.terminal {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	go e.run()
}

// Cancel forces failed(Cancelled) and aborts the in-flight request.
// Idempotent and a no-op once terminal.
func (e *Engine) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.fail(cancelledError())
}

func (e *Engine) run() {
	ctx := e.ctx

	var token string
	if e.deps.Credentials != nil {
		t, err := e.deps.Credentials.Token(ctx)
		if err != nil {
			e.fail(e.classify(ctx, fmt.Errorf("read credentials: %w", err)))
			return
		}
		token = t
	}

	body, err := e.file.Open()
	if err != nil {
		e.fail(&TransferError{Kind: KindNetwork, Message: "Could not read file", Err: err})
		return
	}
	defer body.Close()

	if !e.advance(StatusUploading) {
		return
	}
	e.logger.Info(ctx, "upload started", "filename", e.file.Name, "size", e.file.Size)

	resp, err := e.deps.Transport.Upload(ctx, client.UploadRequest{
		Filename:  e.file.Name,
		Size:      e.file.Size,
		Body:      body,
		Overwrite: e.overwrite,
		Token:     token,
	}, e.onProgress)
	if err != nil {
		e.fail(e.classify(ctx, err))
		return
	}
	e.complete(resp)
}

// onProgress applies a byte count from the transport. Counts never move
// backwards and the percentage stays below 100 until completion. Once
// every byte is out the task waits in processing for the response.
func (e *Engine) onProgress(sent, _ int64) {
	total := e.file.Size
	if sent > total {
		sent = total
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminal || sent <= e.state.Progress.BytesSent {
		return
	}

	pct := percentOf(sent, total)
	if pct > 99 {
		pct = 99
	}
	e.state.Progress = Progress{BytesSent: sent, TotalBytes: total, Percentage: pct}
	if sent == total && e.state.Status == StatusUploading {
		e.state.Status = StatusProcessing
	}
	e.events.push(e.eventLocked(), false)
}

// advance moves to a non-terminal status. It reports false when the
// engine is already terminal.
func (e *Engine) advance(to Status) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminal {
		return false
	}
	if to.rank() <= e.state.Status.rank() {
		return true
	}
	e.state.Status = to
	e.events.push(e.eventLocked(), false)
	return true
}

func (e *Engine) complete(resp *client.UploadResponse) {
	e.mu.Lock()
	if e.terminal {
		e.mu.Unlock()
		return
	}
	e.terminal = true
	e.response = resp
	e.state.Status = StatusCompleted
	e.state.Progress = Progress{BytesSent: e.file.Size, TotalBytes: e.file.Size, Percentage: 100}
	ev := e.eventLocked()
	e.mu.Unlock()

	if e.deps.Cache != nil {
		e.deps.Cache.Invalidate()
	}
	e.logger.Info(e.ctx, "upload completed", "file_id", resp.File.ID)
	e.events.push(ev, true)
	e.release()
}

func (e *Engine) fail(err *TransferError) {
	e.mu.Lock()
	if e.terminal {
		e.mu.Unlock()
		return
	}
	e.terminal = true
	e.state.Status = StatusFailed
	e.state.Err = err
	if err.Kind == KindCancelled {
		e.state.Progress = Progress{TotalBytes: e.file.Size}
	}
	ev := e.eventLocked()
	e.mu.Unlock()

	if err.Kind == KindCancelled {
		e.logger.Info(context.Background(), "upload cancelled")
	} else {
		e.logger.Warn(context.Background(), "upload failed", "kind", err.Kind, "error", err)
	}
	e.events.push(ev, true)
	e.release()
}

func (e *Engine) release() {
	close(e.done)
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) eventLocked() Event {
	return Event{
		TaskID:   e.id,
		Status:   e.state.Status,
		Progress: e.state.Progress,
		Err:      e.state.Err,
	}
}

// classify maps a transport error onto the transfer error taxonomy.
func (e *Engine) classify(ctx context.Context, err error) *TransferError {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return cancelledError()
	}

	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		msg, ok := httpErr.Detail()
		if !ok {
			msg = fmt.Sprintf("Upload failed with status %d", httpErr.StatusCode)
		}
		return &TransferError{Kind: KindServerRejected, Message: msg, StatusCode: httpErr.StatusCode, Err: err}
	}

	if errors.Is(err, client.ErrInvalidResponse) {
		return &TransferError{Kind: KindInvalidResponse, Message: "Invalid response from server", Err: err}
	}

	return &TransferError{Kind: KindNetwork, Message: "Network error during upload", Err: err}
}

// uploaded returns the server's metadata for a completed engine.
func (e *Engine) uploaded() (*models.FileMetadata, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.response == nil {
		return nil, ""
	}
	f := e.response.File
	return &f, e.response.Message
}
