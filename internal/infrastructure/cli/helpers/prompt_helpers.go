package helpers

import (
	"fmt"
	"io"
	"strings"

	"github.com/alle-ai/alle-go/internal/app"
)

// ConfirmAction asks before a destructive operation. Non-interactive
// prompters (--yes) always confirm.
func ConfirmAction(container *app.Container, question string) (bool, error) {
	if container.Prompter == nil {
		return false, fmt.Errorf("confirmation prompter unavailable")
	}
	if !container.Prompter.Enabled() {
		return true, nil
	}
	ok, err := container.Prompter.Confirm(question)
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return ok, nil
}

// PrintWarnings outputs a list of warning messages to the writer
func PrintWarnings(out io.Writer, warnings []string) {
	for _, warning := range warnings {
		warning = strings.TrimSpace(warning)
		if warning == "" {
			continue
		}
		fmt.Fprintf(out, "Warning: %s\n", warning)
	}
}

// PrintStorageWarning waits for pending usage updates and prints the storage
// notice when usage is at or above the threshold. It never fails the command.
func PrintStorageWarning(out io.Writer, container *app.Container) {
	if container.Workbench == nil {
		return
	}
	container.Workbench.Wait()
	if warning, ok := container.Workbench.StorageWarning(); ok {
		PrintWarnings(out, []string{warning.Message})
	}
}
