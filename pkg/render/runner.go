// Package render assembles per-scene images and audio into the final
// vertical video through a fixed chain of encoder invocations.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// maxCapture bounds how much process output is retained per invocation.
const maxCapture = 10 * 1024 * 1024

// Runner abstracts encoder process invocation so the assembly chain can be
// exercised in tests without a real binary.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands through os/exec with captured output.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &limitedWriter{buf: &outBuf}
	cmd.Stderr = &limitedWriter{buf: &errBuf}

	err := cmd.Run()
	if err != nil {
		err = fmt.Errorf("%s: %w", name, err)
	}
	return outBuf.String(), errBuf.String(), err
}

// limitedWriter drops output past maxCapture instead of growing unbounded.
type limitedWriter struct {
	buf *bytes.Buffer
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.buf.Len() >= maxCapture {
		return len(p), nil
	}
	if room := maxCapture - w.buf.Len(); len(p) > room {
		w.buf.Write(p[:room])
		return len(p), nil
	}
	return w.buf.Write(p)
}
