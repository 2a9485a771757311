package reader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/state"
)

// Paginate implements the "paginate" subcommand: splits every chapter of the
// book into pages for the given viewport and writes them out, one file per
// page.
func Paginate(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log

	if cmd.Args().Len() == 0 {
		return errors.New("no book archive specified")
	}
	bookPath := cmd.Args().Get(0)
	destDir := cmd.Args().Get(1)
	if destDir == "" {
		destDir = "."
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	sess, err := newSession(env.Cfg, bookPath, log)
	if err != nil {
		return err
	}
	chapters, err := sess.source.FetchChapterList(ctx, sess.source.BookID())
	if err != nil {
		return fmt.Errorf("reading chapter list: %w", err)
	}

	vp := book.Viewport{Width: int(cmd.Int("width")), Height: int(cmd.Int("height"))}
	if !vp.Valid() {
		return fmt.Errorf("viewport %dx%d is not usable", vp.Width, vp.Height)
	}
	typo := typographyFromConfig(env.Cfg.Reader.Typography)

	var (
		mu    sync.Mutex
		errs  error
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, ch := range chapters {
		g.Go(func() error {
			text, err := sess.source.FetchChapterText(gctx, ch.ID)
			if err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return nil
			}
			pd := sess.paginator.Paginate(ch, text.RawContent, vp, typo, i == 0, i == len(chapters)-1)
			if err := writeChapterPages(destDir, ch, pd.Pages); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return nil
			}
			log.Info("Chapter paginated", zap.String("chapter", ch.DisplayName), zap.Int("pages", pd.PageCount()))
			mu.Lock()
			total += pd.PageCount()
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Info("Book paginated",
		zap.String("book", bookPath),
		zap.Int("chapters", len(chapters)),
		zap.Int("pages", total),
		zap.String("destination", destDir))
	return errs
}

func writeChapterPages(destDir string, ch book.Chapter, pages []string) error {
	dir := filepath.Join(destDir, ch.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating chapter directory: %w", err)
	}
	for i, page := range pages {
		name := filepath.Join(dir, fmt.Sprintf("page-%04d.txt", i+1))
		if err := os.WriteFile(name, []byte(page+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing page %d of chapter %s: %w", i+1, ch.ID, err)
		}
	}
	return nil
}
