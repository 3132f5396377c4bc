package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// ResolveBinary returns the fsbench binary to launch. An empty path means
// the currently running executable.
func ResolveBinary(path string) (string, error) {
	if path != "" {
		return filepath.Abs(path)
	}

	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate fsbench executable: %w", err)
	}

	return self, nil
}

// Build compiles the fsbench command from the module rooted at srcDir into
// outPath. Extra environment (for example GOOS/GOARCH when the benchmark
// runs in a different execution environment) is appended to the inherited
// one.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	srcDir, outPath string,
	env []string,
) (string, error) {
	binPath, err := filepath.Abs(outPath)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}

	logger.InfoContext(ctx, "building fsbench",
		slog.String("source_dir", srcDir),
		slog.String("binary", binPath),
	)

	cmd := exec.CommandContext(ctx, "go", "build", "-o", binPath, "./cmd/fsbench")
	cmd.Dir = srcDir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build fsbench: %w", err)
	}

	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf("build fsbench: binary not found at %s", binPath)
	}

	logger.InfoContext(ctx, "fsbench built",
		slog.String("binary", binPath),
	)

	return binPath, nil
}

// CommandConfig holds the resolved command, extra arguments, and
// environment variables needed to run the benchmark binary.
type CommandConfig struct {
	Binary    string
	ExtraArgs []string
	Env       []string
}

// WrapCommand returns the exec configuration for running binPath. With no
// wrapper the binary runs directly; otherwise wrapper[0] is executed with
// the remaining wrapper arguments followed by binPath, the way a sandbox
// runtime or CPU pinning tool is invoked.
func WrapCommand(wrapper []string, binPath string, env []string) CommandConfig {
	if len(wrapper) == 0 {
		return CommandConfig{Binary: binPath, Env: env}
	}

	args := make([]string, 0, len(wrapper))
	args = append(args, wrapper[1:]...)
	args = append(args, binPath)

	return CommandConfig{
		Binary:    wrapper[0],
		ExtraArgs: args,
		Env:       env,
	}
}
