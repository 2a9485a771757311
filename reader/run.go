package reader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/common"
	"github.com/xxMudCloudxx/Novel-sub000/nav"
	"github.com/xxMudCloudxx/Novel-sub000/state"
	"github.com/xxMudCloudxx/Novel-sub000/storage"
)

// Run implements the "read" subcommand: an interactive command loop over the
// navigation state machine.
func Run(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log

	if cmd.Args().Len() == 0 {
		return errors.New("no book archive specified")
	}
	bookPath := cmd.Args().Get(0)

	sess, err := newSession(env.Cfg, bookPath, log)
	if err != nil {
		return err
	}

	store, err := storage.OpenSQLiteStore(cmd.String("state"),
		typographyFromConfig(env.Cfg.Reader.Typography))
	if err != nil {
		return err
	}
	defer store.Close()

	chapters, err := sess.source.FetchChapterList(ctx, sess.source.BookID())
	if err != nil {
		return fmt.Errorf("reading chapter list: %w", err)
	}

	machine := nav.NewMachine(sess.source.BookID(), chapters, sess.store, sess.sched,
		sess.engine, store, store, log)
	defer machine.Close()

	vp := book.Viewport{Width: int(cmd.Int("width")), Height: int(cmd.Int("height"))}
	st, err := machine.Start(ctx, vp)
	if err != nil {
		return fmt.Errorf("opening reader: %w", err)
	}
	log.Debug("Reader session started", zap.String("book", bookPath), zap.Int("chapters", len(chapters)))

	printPage(sess, st)
	return commandLoop(ctx, cmd, sess, machine, chapters)
}

func commandLoop(ctx context.Context, cmd *cli.Command, sess *session, machine *nav.Machine, chapters []book.Chapter) error {
	var r io.Reader = cmd.Reader
	if r == nil {
		r = os.Stdin
	}
	in := bufio.NewScanner(r)

	fmt.Fprintln(cmd.Writer, `commands: n(ext), p(rev), c INDEX, s FRACTION, toc, q(uit)`)
	for {
		fmt.Fprint(cmd.Writer, "> ")
		if !in.Scan() {
			return in.Err()
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}

		var (
			st  nav.State
			err error
		)
		switch fields[0] {
		case "q", "quit":
			return nil
		case "n", "next":
			st, err = machine.Flip(ctx, common.FlipDirectionForward)
		case "p", "prev":
			st, err = machine.Flip(ctx, common.FlipDirectionBackward)
		case "c", "chapter":
			if len(fields) < 2 {
				fmt.Fprintln(cmd.Writer, "usage: c INDEX")
				continue
			}
			i, convErr := strconv.Atoi(fields[1])
			if convErr != nil || i < 1 || i > len(chapters) {
				fmt.Fprintf(cmd.Writer, "chapter index must be 1..%d\n", len(chapters))
				continue
			}
			st, err = machine.SwitchToChapter(ctx, chapters[i-1].ID)
		case "s", "seek":
			if len(fields) < 2 {
				fmt.Fprintln(cmd.Writer, "usage: s FRACTION")
				continue
			}
			p, convErr := strconv.ParseFloat(fields[1], 64)
			if convErr != nil {
				fmt.Fprintln(cmd.Writer, "fraction must be a number in [0,1]")
				continue
			}
			st, err = machine.SeekToGlobalProgress(ctx, p)
			if errors.Is(err, book.ErrNoPageCount) {
				fmt.Fprintln(cmd.Writer, "global progress not available yet, try again shortly")
				continue
			}
		case "toc":
			info, infoErr := sess.metadata.FetchBookInfo(ctx, sess.source.BookID())
			if infoErr != nil {
				info = book.BookInfo{Title: sess.source.BookID()}
			}
			counts, _ := sess.engine.Result()
			fmt.Fprint(cmd.Writer, renderTOC(info, chapters, sess.store, counts))
			continue
		default:
			fmt.Fprintf(cmd.Writer, "unknown command %q\n", fields[0])
			continue
		}

		if err != nil {
			fmt.Fprintf(cmd.Writer, "error: %v (position kept, retry the same command)\n", err)
			continue
		}
		printPage(sess, st)
	}
}

func printPage(sess *session, st nav.State) {
	out := os.Stdout

	if st.OnDetailPage {
		// the first chapter's pagination carries the book info when the
		// metadata fetch succeeded during preload
		if entry, ok := sess.store.Get(st.ChapterID); ok && entry.PageData != nil && entry.PageData.BookInfo != nil {
			info := entry.PageData.BookInfo
			fmt.Fprintf(out, "\n=== %s ===\n%s\n%s\n\n", info.Title, info.Author, info.Description)
			return
		}
		if info, err := sess.metadata.FetchBookInfo(context.Background(), sess.source.BookID()); err == nil {
			fmt.Fprintf(out, "\n=== %s ===\n%s\n%s\n\n", info.Title, info.Author, info.Description)
			return
		}
		fmt.Fprintln(out, "\n=== book detail ===")
		return
	}

	entry, ok := sess.store.Get(st.ChapterID)
	if !ok || entry.PageData == nil {
		fmt.Fprintln(out, "(page not resident)")
		return
	}
	pd := entry.PageData

	header := fmt.Sprintf("%s  page %d/%d", pd.ChapterName, st.PageIndex+1, pd.PageCount())
	if st.HasProgress {
		header += fmt.Sprintf("  %.1f%%", st.GlobalProgress*100)
	}
	fmt.Fprintf(out, "\n--- %s ---\n", header)
	if st.PageIndex >= 0 && st.PageIndex < pd.PageCount() {
		fmt.Fprintln(out, pd.Pages[st.PageIndex])
	}
}
