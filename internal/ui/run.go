package ui

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"
)

// Run starts the browser and blocks until the user quits or ctx is done.
// Extra ProgramOptions (for example custom IO) are passed to tea.NewProgram.
func Run(ctx context.Context, opts Options, progOpts ...tea.ProgramOption) error {
	m := New(ctx, opts)
	progOpts = append([]tea.ProgramOption{tea.WithContext(ctx)}, progOpts...)
	_, err := tea.NewProgram(m, progOpts...).Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
