// Command proctap is a thin CLI wrapper around the proctap library: point
// it at a process by PID or name and it either dumps raw PCM to stdout or
// reports capture status to stderr until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/proctap/proctap"
)

var (
	pidFlag       uint32
	nameFlag      string
	stdoutFlag    bool
	sampleRate    uint32
	channels      uint8
	qualityFlag   string
	listDevices   bool
)

var rootCmd = &cobra.Command{
	Use:   "proctap",
	Short: "Capture the audio a single process is producing",
	RunE:  runCapture,
}

func init() {
	rootCmd.Flags().Uint32Var(&pidFlag, "pid", 0, "target process ID")
	rootCmd.Flags().StringVar(&nameFlag, "name", "", "target process name (resolved to a PID via process listing)")
	rootCmd.Flags().BoolVar(&stdoutFlag, "stdout", false, "emit raw little-endian PCM to standard output")
	rootCmd.Flags().Uint32Var(&sampleRate, "sample-rate", 0, "requested output sample rate (0 = native)")
	rootCmd.Flags().Uint8Var(&channels, "channels", 0, "requested output channel count, 1 or 2 (0 = native)")
	rootCmd.Flags().StringVar(&qualityFlag, "resample-quality", "best", "one of best, medium, fast")
	rootCmd.Flags().BoolVar(&listDevices, "list-devices", false, "list processes the current backend could plausibly attach to, then exit")
}

// exitCode maps a proctap.ErrorKind to the exit codes in spec §6.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var pErr *proctap.Error
	if e, ok := err.(*proctap.Error); ok {
		pErr = e
	} else {
		return 6
	}
	switch pErr.Kind {
	case proctap.KindInvalidTarget:
		return 1
	case proctap.KindUnsupportedOS:
		return 2
	case proctap.KindTargetNotFound:
		return 3
	case proctap.KindPermissionDenied:
		return 4
	case proctap.KindBackendUnavailable, proctap.KindBackendTimeout:
		return 5
	default:
		return 6
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.err)
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitError carries a specific exit code through cobra's RunE return path,
// since cobra itself only distinguishes "error" from "no error".
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func fail(code int, format string, args ...interface{}) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

func runCapture(cmd *cobra.Command, args []string) error {
	if listDevices {
		return runListDevices()
	}

	target, err := resolveTarget()
	if err != nil {
		return err
	}

	quality, qerr := proctap.ParseResampleQuality(qualityFlag)
	if qerr != nil {
		return fail(1, "invalid --resample-quality: %v", qerr)
	}

	var requested *proctap.Format
	if sampleRate != 0 || channels != 0 {
		requested = &proctap.Format{SampleRate: sampleRate, Channels: channels, SampleFormat: proctap.FormatFloat32}
	}

	if stdoutFlag && term.IsTerminal(int(os.Stdout.Fd())) {
		return fail(1, "refusing to write raw PCM to a terminal; redirect stdout or drop --stdout")
	}

	opts := &proctap.Options{Requested: requested, ResampleQuality: quality}
	session, err := proctap.Open(target, opts)
	if err != nil {
		return fail(exitCode(err), "open: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := session.Start(ctx); err != nil {
		return fail(exitCode(err), "start: %v", err)
	}
	defer session.Close()

	fmt.Fprintf(os.Stderr, "proctap: capturing %s\n", target.String())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		chunk, ok, err := session.Read(200 * time.Millisecond)
		if err != nil {
			if err == proctap.ErrSessionStopped {
				return nil
			}
			return fail(6, "read: %v", err)
		}
		if !ok {
			continue
		}
		if stdoutFlag {
			if _, werr := os.Stdout.Write(chunk.Data); werr != nil {
				return fail(6, "write stdout: %v", werr)
			}
		}
	}
}

func resolveTarget() (proctap.Target, error) {
	switch {
	case pidFlag != 0 && nameFlag != "":
		return proctap.Target{}, fail(1, "--pid and --name are mutually exclusive")
	case pidFlag != 0:
		return proctap.NewPIDTarget(pidFlag), nil
	case nameFlag != "":
		pid, err := resolvePIDByName(nameFlag)
		if err != nil {
			return proctap.Target{}, fail(3, "resolve --name %q: %v", nameFlag, err)
		}
		return proctap.NewPIDTarget(pid), nil
	default:
		return proctap.Target{}, fail(1, "exactly one of --pid or --name is required")
	}
}

func resolvePIDByName(name string) (uint32, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, err
	}
	for _, p := range procs {
		n, err := p.Name()
		if err != nil || n != name {
			continue
		}
		return uint32(p.Pid), nil
	}
	return 0, fmt.Errorf("no running process named %q", name)
}

func runListDevices() error {
	procs, err := process.Processes()
	if err != nil {
		return fail(6, "list processes: %v", err)
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		fmt.Printf("%d\t%s\n", p.Pid, name)
	}
	return nil
}
