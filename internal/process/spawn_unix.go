//go:build !windows

package process

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"
)

// Environment variables carrying the child's instructions across the re-exec.
// They are stripped before the target program image is loaded.
const (
	childEnv  = "EASYD_SPAWN_CHILD"
	outputEnv = "EASYD_SPAWN_OUTPUT"
)

const procSelfExe = "/proc/self/exe"

// Spawn launches executable as a daemon and returns its process id.
//
// The current binary is re-executed as a short-lived shim whose argv is
// already [executable, args...]. The shim starts a new session, points
// stdin at the null device and stdout/stderr at output, then replaces
// itself with executable, so the returned pid is the daemon's pid.
//
// Only validation and process creation errors are returned. Failures inside
// the shim surface as its exit status (ExitSessionFailed, ExitRedirectFailed,
// ExitExecFailed) and a message on the caller's stderr. The shim's exit
// status, and later the daemon's, is logged at warn level when non-zero.
//
// On Linux the shim is started through /proc/self/exe, which keeps working
// after the binary on disk was replaced or removed. Elsewhere os.Executable
// must still point at a runnable file.
func Spawn(executable string, args []string, output string) (int, error) {
	argv, err := BuildArgv(executable, args)
	if err != nil {
		return 0, err
	}
	if err := validateOutput(output); err != nil {
		return 0, err
	}
	self, err := shimExecutable()
	if err != nil {
		return 0, &SpawnError{Executable: executable, Err: fmt.Errorf("locate shim binary: %w", err)}
	}

	// #nosec G204 -- argv is the registered program, validated above
	cmd := &exec.Cmd{
		Path:   self,
		Args:   argv,
		Env:    append(os.Environ(), childEnv+"=1", outputEnv+"="+output),
		Stderr: os.Stderr,
	}
	if err := cmd.Start(); err != nil {
		return 0, &SpawnError{Executable: executable, Err: err}
	}
	pid := cmd.Process.Pid
	// Reap in the background so long-lived callers do not collect zombies.
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Warn("daemon exited", "pid", pid, "executable", executable, "error", err)
		}
	}()
	return pid, nil
}

func shimExecutable() (string, error) {
	if runtime.GOOS == "linux" {
		if _, err := os.Lstat(procSelfExe); err == nil {
			return procSelfExe, nil
		}
	}
	return os.Executable()
}

// RunChildIfRequested turns the current process into the daemon when it was
// started by Spawn. It must run before anything else in main (and in TestMain
// of packages that spawn). It returns immediately in any other process.
func RunChildIfRequested() {
	if os.Getenv(childEnv) != "1" {
		return
	}
	os.Exit(daemonize(os.Args, os.Getenv(outputEnv)))
}

// daemonize never returns on success; the exec replaces the process image.
func daemonize(argv []string, output string) int {
	if len(argv) == 0 {
		childFatal("empty argument vector")
		return ExitExecFailed
	}
	if _, err := unix.Setsid(); err != nil {
		childFatal("failed to create new session: %v", err)
		return ExitSessionFailed
	}
	if err := redirectStdio(output); err != nil {
		childFatal("%v", err)
		return ExitRedirectFailed
	}
	path, err := lookExecutable(argv[0])
	if err != nil {
		childFatal("failed to exec %s: %v", argv[0], err)
		return ExitExecFailed
	}
	// #nosec G204
	err = unix.Exec(path, argv, childEnviron(os.Environ()))
	childFatal("failed to exec %s: %v", path, err)
	return ExitExecFailed
}

func redirectStdio(output string) error {
	stdin, err := os.OpenFile(DevNull, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", DevNull, err)
	}
	defer func() { _ = stdin.Close() }()
	if err := unix.Dup2(int(stdin.Fd()), 0); err != nil {
		return fmt.Errorf("redirect stdin: %w", err)
	}

	var out *os.File
	if output == DevNull {
		out, err = os.OpenFile(DevNull, os.O_WRONLY, 0)
	} else {
		// Append, never truncate: logs survive restarts.
		// #nosec G302 G304
		out, err = os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
	if err != nil {
		return fmt.Errorf("open output %s: %w", output, err)
	}
	defer func() { _ = out.Close() }()
	if err := unix.Dup2(int(out.Fd()), 1); err != nil {
		return fmt.Errorf("redirect stdout: %w", err)
	}
	if err := unix.Dup2(int(out.Fd()), 2); err != nil {
		return fmt.Errorf("redirect stderr: %w", err)
	}
	return nil
}

// lookExecutable mirrors execvp: names without a slash are searched in PATH.
func lookExecutable(name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}
	return exec.LookPath(name)
}

func childEnviron(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, childEnv+"=") || strings.HasPrefix(kv, outputEnv+"=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func childFatal(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[Error]: "+format+"\n", args...)
}
