package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/library"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// Library fetches the unified library and prints it, optionally filtered by kind.
func (r *Runner) Library(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	var kind models.ItemKind
	if k := cmd.String("kind"); k != "" {
		var ok bool
		if kind, ok = models.ParseKind(k); !ok {
			return fmt.Errorf("%w: unknown kind %q", shared.ErrInvalidArgument, k)
		}
	}

	a, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}

	progressCh := make(chan library.Progress, 8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progressCh {
			r.logger.Info(update.Message, "step", update.Step, "total", update.Total)
		}
	}()

	_, err = a.Library.Fetch(ctx, progressCh)
	close(progressCh)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	items := a.Library.Items()
	if kind != "" {
		items = a.Library.Filter(kind)
	}
	return formatter.WriteLibrary(r.output, format, items)
}
