package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wchoi189/agentqms/internal/cli/shared"
	"github.com/wchoi189/agentqms/internal/compliance"
	"github.com/wchoi189/agentqms/internal/watch"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Revalidate documents as they change",
		Long: `Watch the docs root (or a directory relative to it) and print a validation
result every time a document's content changes. Stop with Ctrl-C.`,
		Args:    cobra.MaximumNArgs(1),
		GroupID: GroupCompliance,
		RunE:    withApp(runWatch),
	}
	return cmd
}

func runWatch(cmd *cobra.Command, a *app, args []string) error {
	target := compliance.TargetAll
	if len(args) > 0 {
		target = args[0]
	}
	root, err := a.service.Resolve(target)
	if err != nil {
		return err
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: watch target is not a directory: %s", compliance.ErrNotFound, target)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(root, a.validator, watch.Config{
		Extensions:  a.cfg.Extensions,
		ExcludeDirs: a.cfg.ExcludeDirs,
		Include:     a.cfg.Include,
		Exclude:     a.cfg.Exclude,
		Debounce:    a.cfg.WatchDebounceDuration(),
	}, a.logger)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Watching %s\n", shared.Cyan("●"), a.relative(root))
	for ev := range w.Events() {
		printWatchEvent(out, a, ev)
	}
	if n := w.DroppedEvents(); n > 0 {
		fmt.Fprintf(out, "%s %d changes were not reported because output fell behind\n", shared.Yellow(shared.SymbolWarn), n)
	}
	return nil
}

func printWatchEvent(out io.Writer, a *app, ev watch.Event) {
	path := a.relative(ev.Path)
	if ev.Op == watch.OpDelete {
		fmt.Fprintf(out, "%s %s removed\n", shared.Dim("-"), path)
		return
	}
	if ev.Report.IsCompliant {
		fmt.Fprintf(out, "%s %s\n", shared.Green(shared.SymbolOK), path)
		return
	}
	fmt.Fprintf(out, "%s %s (%d violations)\n", shared.Red(shared.SymbolFail), path, len(ev.Report.Violations))
	for _, v := range ev.Report.Violations {
		fmt.Fprintf(out, "    %s %s\n", shared.Cyan("["+v.RuleID+"]"), v.Message)
	}
}
