package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filedash/internal/client/models"
)

// parseListArgs reads "[page] [name|date|size] [asc|desc]" in any order.
func parseListArgs(args []string) (models.ListQuery, error) {
	var q models.ListQuery
	for _, arg := range args {
		switch a := strings.ToLower(arg); a {
		case models.SortByName, models.SortByDate, models.SortBySize:
			q.SortBy = a
		case models.SortAsc, models.SortDesc:
			q.SortOrder = a
		default:
			n, err := strconv.Atoi(a)
			if err != nil || n < 1 {
				return q, fmt.Errorf("unexpected argument %q", arg)
			}
			q.Page = n
		}
	}
	return q, nil
}

// List prints one page of the user's files.
func (a *App) List(ctx context.Context, args []string) error {
	q, err := parseListArgs(args)
	if err != nil {
		a.printf("Usage: list [page] [name|date|size] [asc|desc]\n")
		return err
	}

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	list, err := a.fileService.List(ctx, q)
	if err != nil {
		a.printf("Error: %s\n", describe(err))
		return err
	}
	printFiles(a.out, list)
	return nil
}

// Download saves a file into the download directory.
func (a *App) Download(ctx context.Context, id string) error {
	path, err := a.fileService.Download(ctx, id)
	if err != nil {
		a.printf("Error: %s\n", describe(err))
		return err
	}
	a.printf("Saved to %s\n", path)
	return nil
}

// Delete removes a file after confirmation unless force is set.
func (a *App) Delete(ctx context.Context, id string, force bool) error {
	if !force {
		answer, err := Choose(a.reader, fmt.Sprintf("Delete file %s?", id), []string{"yes", "no"}, a.out)
		if err != nil {
			return err
		}
		if answer != "yes" {
			a.printf("Kept %s\n", id)
			return nil
		}
	}

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	if err := a.fileService.Delete(ctx, id); err != nil {
		a.printf("Error: %s\n", describe(err))
		return err
	}
	a.printf("Deleted %s\n", id)
	return nil
}
