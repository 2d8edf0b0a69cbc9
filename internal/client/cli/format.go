package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/dustin/go-humanize"
)

func bar(pct, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func printFiles(w io.Writer, list *models.FileList) {
	if len(list.Files) == 0 {
		fmt.Fprintln(w, "No files")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tUPLOADED\tTHUMB")
	for _, f := range list.Files {
		thumb := ""
		if f.HasThumbnail {
			thumb = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.Filename, humanize.IBytes(uint64(f.FileSize)), f.UploadedAt.Local().Format("2006-01-02 15:04"), thumb)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Page %d of %d (%d files)\n", list.Page, max(list.TotalPages, 1), list.Total)
}
