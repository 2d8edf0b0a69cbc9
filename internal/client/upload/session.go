package upload

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/dmitrijs2005/filedash/internal/logging"
	"github.com/dmitrijs2005/filedash/internal/validation"
	"github.com/google/uuid"
)

// Outcome is the terminal result of a session, handed to exactly one of
// Options.OnSuccess or Options.OnError.
type Outcome struct {
	Task     Task
	File     *models.FileMetadata
	Message  string
	Decision DuplicateDecision
}

// Err is the failure cause, nil on success.
func (o *Outcome) Err() error { return o.Task.Err }

// Options carries per-upload callbacks. All of them are optional and run
// on the session goroutine.
type Options struct {
	Decide     DecisionFunc
	OnStatus   func(Task)
	OnProgress func(Progress)
	OnSuccess  func(*Outcome)
	OnError    func(*Outcome)
}

// Uploader orchestrates upload sessions, at most one at a time.
type Uploader struct {
	deps     EngineDeps
	resolver *Resolver
	registry *Registry
	logger   logging.Logger
	newID    func() string

	mu     sync.Mutex
	active *Session
}

func NewUploader(deps EngineDeps, resolver *Resolver, registry *Registry) *Uploader {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	return &Uploader{
		deps:     deps,
		resolver: resolver,
		registry: registry,
		logger:   deps.Logger.With("module", "uploader"),
		newID:    uuid.NewString,
	}
}

// Active returns the running session or nil.
func (u *Uploader) Active() *Session {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.active
}

// Upload starts a session for file and returns immediately. Retrying a
// failed upload is simply another call with the same file.
func (u *Uploader) Upload(ctx context.Context, file File, opts Options) (*Session, error) {
	u.mu.Lock()
	if u.active != nil {
		u.mu.Unlock()
		return nil, ErrUploadInProgress
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		uploader: u,
		file:     file,
		opts:     opts,
		ctx:      sctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		events:   newEventQueue(),
		task: Task{
			ID:       u.newID(),
			Filename: file.Name,
			Status:   StatusQueued,
		},
	}
	u.active = s
	u.mu.Unlock()

	go s.run()
	return s, nil
}

func (u *Uploader) release(s *Session) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.active == s {
		u.active = nil
	}
}

// Session is one validate -> check -> transfer -> finalize run.
type Session struct {
	uploader *Uploader
	file     File
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	task    Task
	engine  *Engine
	outcome *Outcome
	done    chan struct{}

	events     *eventQueue
	subscribed bool
	abandoned  bool
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task.ID
}

func (s *Session) Snapshot() Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

// Events streams every status and progress update in order, ending with
// the terminal event. Events buffered before the first call are replayed.
// Called after the session has ended, it yields only the terminal event.
func (s *Session) Events() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.abandoned {
		ch := make(chan Event, 1)
		ch <- s.eventLocked()
		close(ch)
		return ch
	}
	s.subscribed = true
	return s.events.out
}

func (s *Session) eventLocked() Event {
	return Event{TaskID: s.task.ID, Status: s.task.Status, Progress: s.task.Progress, Err: s.task.Err}
}

// Done is closed after the terminal callback has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Cancel stops the session at whatever stage it is in. Idempotent.
func (s *Session) Cancel() {
	s.cancel()

	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()

	if engine != nil {
		engine.Cancel()
	}
}

// Wait blocks until the session is terminal or ctx is done.
func (s *Session) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.outcome, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) run() {
	u := s.uploader
	ctx := s.ctx
	log := u.logger.With("upload_id", s.task.ID, "filename", s.file.Name)

	if err := validation.ValidateFile(s.file.Name, s.file.Size); err != nil {
		log.Info(ctx, "upload rejected by validation", "error", err)
		s.finish(&Outcome{}, StatusFailed, err)
		return
	}

	decision := DuplicateDecision{Action: ActionProceed}
	if u.resolver != nil {
		d, err := u.resolver.Resolve(ctx, s.file.Name, s.opts.Decide)
		decision = d
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn(ctx, "duplicate decision failed", "error", err)
		}
		if err != nil || d.Action == ActionCancel {
			s.finish(&Outcome{Decision: d}, StatusFailed, cancelledError())
			return
		}
	}
	if ctx.Err() != nil {
		s.finish(&Outcome{Decision: decision}, StatusFailed, cancelledError())
		return
	}

	engine := NewEngine(s.task.ID, s.file, decision.Action == ActionOverwrite, u.deps)

	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()

	u.registry.Register(s.task.ID, engine.Cancel)
	// Cancel may have raced with the assignment above.
	if ctx.Err() != nil {
		engine.Cancel()
	}
	engine.Start(ctx)

	for ev := range engine.Events() {
		if ev.Status.Terminal() {
			u.registry.Deregister(s.task.ID)
		}
		s.apply(ev)
	}

	outcome := &Outcome{Decision: decision}
	outcome.File, outcome.Message = engine.uploaded()
	final := engine.Snapshot()
	s.finish(outcome, final.Status, final.Err)
}

// apply relays one engine event to the caller.
func (s *Session) apply(ev Event) {
	s.mu.Lock()
	statusChanged := s.task.Status != ev.Status
	progressChanged := s.task.Progress != ev.Progress
	s.task.Status = ev.Status
	s.task.Progress = ev.Progress
	s.task.Err = ev.Err
	snap := s.task
	s.mu.Unlock()

	if ev.Status.Terminal() {
		return
	}
	s.events.push(Event{TaskID: snap.ID, Status: snap.Status, Progress: snap.Progress, Err: snap.Err}, false)
	if progressChanged && s.opts.OnProgress != nil {
		s.opts.OnProgress(snap.Progress)
	}
	if statusChanged && s.opts.OnStatus != nil {
		s.opts.OnStatus(snap)
	}
}

// finish records the terminal state, deregisters, frees the uploader and
// then invokes exactly one terminal callback.
func (s *Session) finish(outcome *Outcome, status Status, err error) {
	s.mu.Lock()
	s.task.Status = status
	s.task.Err = err
	if status == StatusCompleted {
		s.task.Progress = Progress{BytesSent: s.file.Size, TotalBytes: s.file.Size, Percentage: 100}
	} else if errors.Is(err, ErrCancelled) {
		s.task.Progress = Progress{TotalBytes: s.file.Size}
	}
	outcome.Task = s.task
	s.outcome = outcome
	s.events.push(s.eventLocked(), true)
	if !s.subscribed {
		s.abandoned = true
		s.events.stop()
	}
	s.mu.Unlock()

	s.uploader.registry.Deregister(outcome.Task.ID)
	s.uploader.release(s)
	s.cancel()

	if s.opts.OnStatus != nil {
		s.opts.OnStatus(outcome.Task)
	}
	if status == StatusCompleted {
		if s.opts.OnSuccess != nil {
			s.opts.OnSuccess(outcome)
		}
	} else if s.opts.OnError != nil {
		s.opts.OnError(outcome)
	}
	close(s.done)
}
