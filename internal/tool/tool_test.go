package tool

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec Spec
		want []string
	}{
		{
			name: "no placeholders",
			spec: Spec{Command: "ruff", Args: []string{"check", "."}},
			want: []string{"ruff", "check", "."},
		},
		{
			name: "list placeholder expands to many args",
			spec: Spec{
				Command: "black",
				Args:    []string{"--line-length", "{line_length}", "{files}"},
				Vars:    map[string]string{"line_length": "100"},
				Lists:   map[string][]string{"files": {"a.py", "b.py"}},
			},
			want: []string{"black", "--line-length", "100", "a.py", "b.py"},
		},
		{
			name: "empty list removes the argument",
			spec: Spec{
				Command: "mypy",
				Args:    []string{"{files}"},
				Lists:   map[string][]string{"files": {}},
			},
			want: []string{"mypy"},
		},
		{
			name: "scalar inside argument and command",
			spec: Spec{
				Command: "python{python}",
				Args:    []string{"--ExecutePreprocessor.timeout={timeout}"},
				Vars:    map[string]string{"python": "3.12", "timeout": "60"},
			},
			want: []string{"python3.12", "--ExecutePreprocessor.timeout=60"},
		},
		{
			name: "unknown placeholder is kept literally",
			spec: Spec{Command: "x", Args: []string{"{unknown}"}},
			want: []string{"x", "{unknown}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Expand(tt.spec)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Expand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUsesList(t *testing.T) {
	t.Parallel()

	args := []string{"--line-length={line_length}", "{files}"}
	if !UsesList(args, "files") {
		t.Error("UsesList(files) = false, want true")
	}
	if UsesList(args, "line_length") {
		t.Error("UsesList(line_length) = true, want false")
	}
}

func TestRunner_Run_ExitCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		exitCode   int
		execErr    error
		wantPassed bool
	}{
		{name: "zero exit passes", exitCode: 0, wantPassed: true},
		{name: "non-zero exit fails", exitCode: 1, wantPassed: false},
		{name: "start failure fails", exitCode: -1, execErr: errors.New("boom"), wantPassed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var gotArgv []string
			r := NewRunnerWithExec(func(_ context.Context, _ string, _ []string, name string, args ...string) (string, string, int, error) {
				gotArgv = append([]string{name}, args...)
				return "out\n", "err\n", tt.exitCode, tt.execErr
			}, nil)

			res := r.Run(context.Background(), Spec{Name: "lint", Command: "ruff", Args: []string{"check"}})
			if res.Passed() != tt.wantPassed {
				t.Errorf("Passed() = %v, want %v (err=%v)", res.Passed(), tt.wantPassed, res.Err)
			}
			if !slices.Equal(gotArgv, []string{"ruff", "check"}) {
				t.Errorf("argv = %v", gotArgv)
			}
			if res.Output() != "out\nerr" {
				t.Errorf("Output() = %q", res.Output())
			}
		})
	}
}

func TestRunner_Run_ToolNotFound(t *testing.T) {
	t.Parallel()

	lookups := 0
	r := NewRunnerWithExec(func(context.Context, string, []string, string, ...string) (string, string, int, error) {
		t.Fatal("exec must not be called for a missing tool")
		return "", "", 0, nil
	}, func(string) (string, error) {
		lookups++
		return "", errors.New("not found")
	})

	res := r.Run(context.Background(), Spec{Name: "mypy", Command: "mypy"})
	if !errors.Is(res.Err, ErrToolNotFound) {
		t.Errorf("Err = %v, want ErrToolNotFound", res.Err)
	}
	if r.Available("mypy") {
		t.Error("Available() = true, want false")
	}
	if lookups != 1 {
		t.Errorf("lookups = %d, want 1 (cached)", lookups)
	}
}

func TestRunner_Run_Timeout(t *testing.T) {
	t.Parallel()

	r := NewRunnerWithExec(func(ctx context.Context, _ string, _ []string, _ string, _ ...string) (string, string, int, error) {
		<-ctx.Done()
		return "", "", -1, ctx.Err()
	}, nil)

	res := r.Run(context.Background(), Spec{Name: "slow", Command: "sleep", Timeout: 10 * time.Millisecond})
	if !errors.Is(res.Err, ErrTimeout) {
		t.Errorf("Err = %v, want ErrTimeout", res.Err)
	}
	if res.Passed() {
		t.Error("Passed() = true for a timed out tool")
	}
}

func TestRunner_Run_EmptyCommand(t *testing.T) {
	t.Parallel()

	r := NewRunnerWithExec(nil, nil)
	res := r.Run(context.Background(), Spec{Name: "empty"})
	if !errors.Is(res.Err, ErrEmptyCommand) {
		t.Errorf("Err = %v, want ErrEmptyCommand", res.Err)
	}
}
