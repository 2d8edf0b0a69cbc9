package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/dmitrijs2005/filedash/internal/client/upload"
	"github.com/dustin/go-humanize"
)

// notifyContext is a test seam for signal.NotifyContext.
var notifyContext = signal.NotifyContext

// Upload sends the file at path and blocks until the session ends. An
// interrupt cancels the transfer instead of killing the process.
func (a *App) Upload(ctx context.Context, path string) error {
	file, err := upload.FileFromPath(path)
	if err != nil {
		a.printf("Cannot read %s: %v\n", path, err)
		return err
	}

	ctx, stop := notifyContext(ctx, os.Interrupt)
	defer stop()

	p := &progressPrinter{app: a, name: file.Name}
	session, err := a.uploader.Upload(ctx, file, upload.Options{
		Decide:     a.decideDuplicate,
		OnStatus:   p.status,
		OnProgress: p.progress,
	})
	if errors.Is(err, upload.ErrUploadInProgress) {
		a.printf("Another upload is still running\n")
		return err
	}
	if err != nil {
		return err
	}

	out, err := session.Wait(context.Background())
	if err != nil {
		return err
	}
	p.finish()
	return a.report(out)
}

func (a *App) report(out *upload.Outcome) error {
	if out.Task.Status == upload.StatusCompleted {
		a.printf("Uploaded %s (%s), id %s\n", out.File.Filename, humanize.IBytes(uint64(out.File.FileSize)), out.File.ID)
		return nil
	}

	err := out.Err()
	if errors.Is(err, upload.ErrCancelled) {
		a.printf("Upload of %s cancelled\n", out.Task.Filename)
		return nil
	}
	a.printf("Upload of %s failed: %s\n", out.Task.Filename, upload.Message(err))
	return err
}

// decideDuplicate asks the user what to do with a name clash. The prompt
// owns a.reader until the user answers, so no read outlives it; a
// cancellation that arrives meanwhile wins over the answer.
func (a *App) decideDuplicate(ctx context.Context, existing models.FileMetadata) (upload.Action, error) {
	a.printf("A file named %q already exists (%s, uploaded %s).\n",
		existing.Filename,
		humanize.IBytes(uint64(existing.FileSize)),
		humanize.Time(existing.UploadedAt),
	)

	choice, err := Choose(a.reader, "Overwrite it or cancel the upload?", []string{"overwrite", "cancel"}, a.out)
	if ctx.Err() != nil {
		return upload.ActionCancel, ctx.Err()
	}
	if err != nil {
		return upload.ActionCancel, err
	}
	if choice == "overwrite" {
		return upload.ActionOverwrite, nil
	}
	return upload.ActionCancel, nil
}

// progressPrinter redraws a single progress line.
type progressPrinter struct {
	app   *App
	name  string
	last  int
	drawn bool
}

func (p *progressPrinter) status(t upload.Task) {
	switch t.Status {
	case upload.StatusUploading:
		p.app.printf("Uploading %s...\n", p.name)
	case upload.StatusProcessing:
		if !p.drawn {
			p.line(t.Progress)
		}
		p.app.printf("\nProcessing on server...\n")
		p.drawn = false
	}
}

func (p *progressPrinter) progress(pr upload.Progress) {
	if pr.Percentage == p.last && p.drawn {
		return
	}
	p.line(pr)
}

func (p *progressPrinter) line(pr upload.Progress) {
	p.last = pr.Percentage
	p.drawn = true
	p.app.printf("\r%s %3d%% (%s / %s)", bar(pr.Percentage, 30), pr.Percentage,
		humanize.IBytes(uint64(pr.BytesSent)), humanize.IBytes(uint64(pr.TotalBytes)))
}

func (p *progressPrinter) finish() {
	if p.drawn {
		p.app.printf("\n")
		p.drawn = false
	}
}
