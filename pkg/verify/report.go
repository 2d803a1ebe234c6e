package verify

import (
	"bufio"
	"fmt"
	"io"
)

// WriteTo prints the report the way the command line shows it: structural
// errors, or the metric diagnostics, followed by the verdict line.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	if r.Metrics == nil {
		for _, f := range r.Findings {
			fmt.Fprintf(cw, "ERROR: %s\n", f.Message)
			for _, d := range f.Details {
				fmt.Fprintln(cw, d)
			}
		}
	} else {
		m := r.Metrics
		fmt.Fprintf(cw, "Reported objective  : %.10f\n", r.Reported)
		fmt.Fprintf(cw, "Recomputed objective: %.10f\n", m.Objective)
		fmt.Fprintf(cw, "Workload gap        : %d (alpha=%d)\n", m.WorkloadGap(), r.Thresholds.Alpha)
		fmt.Fprintf(cw, "Distance gap        : %.2f (beta=%.2f)\n", m.DistanceGap(), r.Thresholds.Beta)
	}
	fmt.Fprintln(cw, r.Verdict())

	if err := cw.w.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
