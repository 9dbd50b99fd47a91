package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/barysiuk/duckport/internal/core"
	"github.com/barysiuk/duckport/internal/core/convert"
	"github.com/spf13/cobra"
)

// addConversionFlags adds the flags that shape converted output.
func addConversionFlags(cmd *cobra.Command) {
	cmd.Flags().String("agent-mode", string(convert.AgentModeSubagent), "OpenCode agent mode (primary, subagent or all)")
	cmd.Flags().Bool("infer-temperature", false, "Write an inferred temperature into OpenCode agents")
	cmd.Flags().String("permissions", string(convert.PermissionsNone), "OpenCode agent permissions (none or broad)")
}

// printCloneHints prints the hints of a clone failure, if err wraps one.
func printCloneHints(w io.Writer, err error) {
	var ce *core.CloneError
	if !errors.As(err, &ce) || len(ce.Hints) == 0 {
		return
	}
	fmt.Fprintln(w, warningStyle.Render("Hints:"))
	for _, h := range ce.Hints {
		fmt.Fprintf(w, "  %s %s\n", warningStyle.Render("•"), h)
	}
}

// countLabel renders "1 rule" or "3 rules".
func countLabel(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// targetSummary renders the per-kind counts of one target.
func targetSummary(tr core.TargetResult) string {
	parts := []string{
		countLabel(tr.Rules, "rule"),
		countLabel(tr.Commands, "command"),
		countLabel(tr.Skills, "skill"),
		countLabel(tr.Servers, "server"),
	}
	return strings.Join(parts, ", ")
}
