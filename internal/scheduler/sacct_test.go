package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSacctArgs(t *testing.T) {
	got := SacctArgs("sacct", 42, []string{"State", "ExitCode"})
	want := []string{"sacct", "-j", "42", "--format=State,ExitCode", "--noheader", "--parsable2"}
	assert.Equal(t, want, got)
}

func TestParseAccountingRecord(t *testing.T) {
	full := []string{FieldState, FieldExitCode, FieldElapsed, FieldStdOut, FieldStdErr}

	tests := []struct {
		name   string
		stdout string
		fields []string
		want   AccountingRecord
	}{
		{
			name:   "full record",
			stdout: "COMPLETED|0:0|00:01:05|/home/u/slurm-1.out|/home/u/slurm-1.err\n",
			fields: full,
			want: AccountingRecord{
				State: StateCompleted, RawState: "COMPLETED", Elapsed: 65 * time.Second,
				StdoutPath: "/home/u/slurm-1.out", StderrPath: "/home/u/slurm-1.err",
			},
		},
		{
			name:   "first line authoritative",
			stdout: "\nFAILED|3:0|00:00:10||\nCOMPLETED|0:0|00:00:10||\n",
			fields: full,
			want:   AccountingRecord{State: StateFailed, RawState: "FAILED", ExitCode: 3, Elapsed: 10 * time.Second},
		},
		{
			name:   "cancelled with signal",
			stdout: "CANCELLED by 1000|0:15|INVALID\n",
			fields: []string{FieldState, FieldExitCode, FieldElapsed},
			want:   AccountingRecord{State: StateCancelled, RawState: "CANCELLED by 1000", Signal: 15},
		},
		{
			name:   "whitespace fallback",
			stdout: "  TIMEOUT   0:0  \n",
			fields: []string{FieldState, FieldExitCode},
			want:   AccountingRecord{State: StateTimeout, RawState: "TIMEOUT"},
		},
		{
			name:   "short record",
			stdout: "RUNNING\n",
			fields: full,
			want:   AccountingRecord{State: StateRunning, RawState: "RUNNING"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAccountingRecord(tt.stdout, tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAccountingRecordErrors(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
	}{
		{"empty", ""},
		{"blank lines", "\n  \n"},
		{"bad exit code", "FAILED|x:y\n"},
		{"empty state", "|0:0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAccountingRecord(tt.stdout, []string{FieldState, FieldExitCode})
			if !errors.Is(err, ErrAccountingParseFailed) {
				t.Fatalf("error = %v, want ErrAccountingParseFailed", err)
			}
			if !IsParseError(err) {
				t.Errorf("error should be a *ParseError")
			}
		})
	}
}

func TestParseExitCode(t *testing.T) {
	tests := []struct {
		in         string
		code, sig  int
		shouldFail bool
	}{
		{in: "0:0"},
		{in: "1:0", code: 1},
		{in: "0:9", sig: 9},
		{in: "2", code: 2},
		{in: "a:0", shouldFail: true},
		{in: "1:b", shouldFail: true},
	}
	for _, tt := range tests {
		code, sig, err := parseExitCode(tt.in)
		if tt.shouldFail {
			if err == nil {
				t.Errorf("parseExitCode(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil || code != tt.code || sig != tt.sig {
			t.Errorf("parseExitCode(%q) = %d, %d, %v", tt.in, code, sig, err)
		}
	}
}

func TestAccountingQueryState(t *testing.T) {
	runner := newFakeRunner().on("sacct", ok("RUNNING\n"))
	acct := &Accounting{Runner: runner, Bin: "/opt/slurm/bin/sacct"}

	state, err := acct.QueryState(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state)

	calls := runner.callsTo("sacct")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"/opt/slurm/bin/sacct", "-j", "7", "--format=State", "--noheader", "--parsable2"}, calls[0].Args)
	assert.Equal(t, defaultAccountingTimeout, calls[0].Opts.Timeout)
}

func TestAccountingQueryStateFailures(t *testing.T) {
	t.Run("non-zero exit", func(t *testing.T) {
		runner := newFakeRunner().on("sacct", exits(1, "", "sacct: error: Problem talking to the database"))
		_, err := (&Accounting{Runner: runner}).QueryState(context.Background(), 7)
		assert.ErrorIs(t, err, ErrCommandFailed)
	})

	t.Run("empty output", func(t *testing.T) {
		runner := newFakeRunner().on("sacct", ok(""))
		state, err := (&Accounting{Runner: runner}).QueryState(context.Background(), 7)
		assert.ErrorIs(t, err, ErrAccountingParseFailed)
		assert.Equal(t, StateUnknown, state)
	})

	t.Run("tool missing", func(t *testing.T) {
		_, err := (&Accounting{Runner: newFakeRunner()}).QueryState(context.Background(), 7)
		assert.ErrorIs(t, err, ErrToolNotFound)
	})
}
