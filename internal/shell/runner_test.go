package shell

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecRunner_CapturesOutput(t *testing.T) {
	var stream bytes.Buffer
	r := NewExecRunner(nil)
	r.Stream = &stream

	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}})
	require.NoError(t, err)
	require.Equal(t, "out\n", res.Stdout)
	require.Equal(t, "err\n", res.Stderr)
	require.Contains(t, stream.String(), "out")
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	res, err := NewExecRunner(nil).Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	require.Error(t, err)
	require.Equal(t, 3, res.ExitCode)
	require.Equal(t, "boom\n", res.Output())
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := NewExecRunner(nil).Run(context.Background(), Command{Name: "docbinder-no-such-binary"})
	require.Error(t, err)
}

func TestFakeRunner(t *testing.T) {
	f := &FakeRunner{Handler: func(c Command) (Result, error) {
		if c.Name == "fail" {
			return Result{Stderr: "nope", ExitCode: 1}, errors.New("exit 1")
		}
		return Result{Stdout: "ok"}, nil
	}}

	res, err := f.Run(context.Background(), Command{Name: "hugo", Args: []string{"-d", "build"}})
	require.NoError(t, err)
	require.Equal(t, "ok", res.Stdout)

	_, err = f.Run(context.Background(), Command{Name: "fail"})
	require.Error(t, err)

	require.Len(t, f.Calls(), 2)
	require.Len(t, f.CallsTo("hugo"), 1)
	require.Equal(t, "hugo -d build", f.CallsTo("hugo")[0].String())
}
