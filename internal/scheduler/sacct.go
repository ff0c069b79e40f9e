package scheduler

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Accounting field names understood by ParseAccountingRecord.
const (
	FieldState    = "State"
	FieldExitCode = "ExitCode"
	FieldElapsed  = "Elapsed"
	FieldStdOut   = "StdOut"
	FieldStdErr   = "StdErr"
)

// defaultAccountingTimeout bounds a single sacct call.
const defaultAccountingTimeout = 10 * time.Second

// BaseResultFields are requested for every final accounting lookup.
var BaseResultFields = []string{FieldState, FieldExitCode, FieldElapsed}

// OutputPathFields are only known to sacct from Slurm 23.02.
var OutputPathFields = []string{FieldStdOut, FieldStdErr}

// SacctArgs builds the sacct argument vector for one job.
func SacctArgs(bin string, jobID int, fields []string) []string {
	return []string{
		bin,
		"-j", strconv.Itoa(jobID),
		"--format=" + strings.Join(fields, ","),
		"--noheader",
		"--parsable2",
	}
}

// SplitAccountingLine returns the columns of the first non-empty line of
// sacct output. Lines are "|"-delimited; whitespace is the fallback.
func SplitAccountingLine(stdout string) ([]string, bool) {
	for line := range strings.Lines(stdout) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "|") {
			cols := strings.Split(line, "|")
			for i := range cols {
				cols[i] = strings.TrimSpace(cols[i])
			}
			return cols, true
		}
		return strings.Fields(line), true
	}
	return nil, false
}

// ParseAccountingRecord parses the first sacct record, whose columns are in
// the order given by fields. Missing trailing columns are left empty.
func ParseAccountingRecord(stdout string, fields []string) (AccountingRecord, error) {
	cols, ok := SplitAccountingLine(stdout)
	if !ok {
		return AccountingRecord{}, NewParseError(SchedulerName, stdout, "no accounting record", ErrAccountingParseFailed)
	}

	rec := AccountingRecord{State: StateUnknown}
	for i, field := range fields {
		if i >= len(cols) {
			break
		}
		val := cols[i]
		switch field {
		case FieldState:
			rec.RawState = val
			rec.State = ParseJobState(val)
		case FieldExitCode:
			code, sig, err := parseExitCode(val)
			if err != nil {
				return AccountingRecord{}, NewParseError(SchedulerName, stdout, "bad exit code "+strconv.Quote(val), ErrAccountingParseFailed)
			}
			rec.ExitCode, rec.Signal = code, sig
		case FieldElapsed:
			// Unparseable elapsed times (e.g. "INVALID") are ignored.
			if d, err := ParseTimeSpec(val); err == nil {
				rec.Elapsed = d
			}
		case FieldStdOut:
			rec.StdoutPath = val
		case FieldStdErr:
			rec.StderrPath = val
		}
	}
	if rec.RawState == "" && slices.Contains(fields, FieldState) {
		return AccountingRecord{}, NewParseError(SchedulerName, stdout, "empty state column", ErrAccountingParseFailed)
	}
	return rec, nil
}

// parseExitCode splits sacct's "<code>:<signal>" ExitCode column.
func parseExitCode(s string) (code, signal int, err error) {
	codePart, sigPart, hasSig := strings.Cut(strings.TrimSpace(s), ":")
	code, err = strconv.Atoi(codePart)
	if err != nil {
		return 0, 0, err
	}
	if hasSig {
		signal, err = strconv.Atoi(sigPart)
		if err != nil {
			return 0, 0, err
		}
	}
	return code, signal, nil
}

// Accounting queries sacct through a Runner.
type Accounting struct {
	Runner  Runner
	Bin     string
	Env     map[string]string // Passed to every sacct call
	Timeout time.Duration     // Per-query budget; zero uses 10s
}

func (a *Accounting) run(ctx context.Context, jobID int, fields []string) (CommandOutcome, error) {
	bin := a.Bin
	if bin == "" {
		bin = DefaultSacctBin
	}
	timeout := a.Timeout
	if timeout == 0 {
		timeout = defaultAccountingTimeout
	}
	out, err := a.Runner.Run(ctx, SacctArgs(bin, jobID, fields), RunOptions{Env: a.Env, Timeout: timeout})
	if err != nil {
		return out, err
	}
	if err := CheckOutcome(out, true); err != nil {
		return out, err
	}
	return out, nil
}

// QueryState returns the job's current state.
func (a *Accounting) QueryState(ctx context.Context, jobID int) (JobState, error) {
	fields := []string{FieldState}
	out, err := a.run(ctx, jobID, fields)
	if err != nil {
		return StateUnknown, err
	}
	rec, err := ParseAccountingRecord(out.Stdout, fields)
	if err != nil {
		return StateUnknown, err
	}
	return rec.State, nil
}

// Lookup returns one accounting record with the requested fields.
func (a *Accounting) Lookup(ctx context.Context, jobID int, fields []string) (AccountingRecord, error) {
	out, err := a.run(ctx, jobID, fields)
	if err != nil {
		return AccountingRecord{}, err
	}
	return ParseAccountingRecord(out.Stdout, fields)
}
