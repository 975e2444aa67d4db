package telemetry

import (
	"fmt"
	"io"

	"github.com/robinvdvleuten/beancount-scc/output"
)

// writeTree prints root and its descendants:
//
//	convert: 125ms
//	├─ loader.Load: 85ms (68%)
//	│  └─ loader.process: 40ms (47%)
//	└─ convert.Convert: 40ms (32%)
//
// Percentages are shares of the parent step.
func writeTree(w io.Writer, root *step, styles *output.Styles) {
	_, _ = fmt.Fprintf(w, "%s: %s\n", styles.Heading(root.name), styles.Duration(root.duration()))
	writeChildren(w, root, "", styles)
}

func writeChildren(w io.Writer, parent *step, prefix string, styles *output.Styles) {
	for i, child := range parent.children {
		branch, indent := "├─ ", "│  "
		if i == len(parent.children)-1 {
			branch, indent = "└─ ", "   "
		}

		line := fmt.Sprintf("%s%s: %s", styles.Muted(prefix+branch), child.name, styles.Duration(child.duration()))
		if total := parent.duration(); total > 0 {
			line += styles.Muted(fmt.Sprintf(" (%d%%)", child.duration()*100/total))
		}
		_, _ = fmt.Fprintln(w, line)

		writeChildren(w, child, prefix+indent, styles)
	}
}
