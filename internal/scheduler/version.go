package scheduler

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// outputPathsSince is the first Slurm release whose sacct knows StdOut/StdErr.
const outputPathsSince = "v23.2.0"

// ParseSlurmVersion extracts the version from `sbatch --version` output
// such as "slurm 23.02.6". The raw token is returned unchanged.
func ParseSlurmVersion(output string) string {
	parts := strings.Fields(strings.TrimSpace(output))
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return parts[1]
}

// CanonicalVersion converts a Slurm version ("23.02.6", "24.05.0-0rc1") to
// semver form ("v23.2.6"). Leading zeros are dropped. Returns "" when the
// version cannot be read.
func CanonicalVersion(version string) string {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	core, _, _ := strings.Cut(version, "-")
	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		return ""
	}
	nums := make([]string, 0, 3)
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return ""
		}
		nums = append(nums, strconv.Itoa(n))
	}
	for len(nums) < 3 {
		nums = append(nums, "0")
	}
	return semver.Canonical("v" + strings.Join(nums, "."))
}

// SupportsOutputPaths reports whether sacct of this Slurm version accepts
// the StdOut/StdErr fields. Unknown versions are assumed to.
func SupportsOutputPaths(version string) bool {
	c := CanonicalVersion(version)
	if c == "" {
		return true
	}
	return semver.Compare(c, outputPathsSince) >= 0
}

// ResultFields returns the final accounting fields for a Slurm version.
func ResultFields(version string) []string {
	fields := append([]string(nil), BaseResultFields...)
	if SupportsOutputPaths(version) {
		fields = append(fields, OutputPathFields...)
	}
	return fields
}

// DetectVersion runs `sbatch --version` with opts.
func DetectVersion(ctx context.Context, runner Runner, sbatchBin string, opts RunOptions) (string, error) {
	out, err := runner.Run(ctx, []string{sbatchBin, "--version"}, opts)
	if err != nil {
		return "", err
	}
	if err := CheckOutcome(out, true); err != nil {
		return "", err
	}
	v := ParseSlurmVersion(out.Stdout)
	if v == "" {
		return "", NewParseError(SchedulerName, out.Stdout, "no version in sbatch --version output", ErrInvalidVersion)
	}
	return v, nil
}
