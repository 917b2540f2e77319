package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

var (
	version    string
	buildstamp string
	githash    string
)

const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

// partialError marks a run that completed with failed units.
type partialError struct {
	units []string
}

func (e partialError) Error() string {
	return "import finished with failed units: " + strings.Join(e.units, ", ")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(os.Stderr, err.Error())
	var partial partialError
	if errors.As(err, &partial) {
		return exitPartial
	}
	return exitFatal
}
