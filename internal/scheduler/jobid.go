package scheduler

import (
	"regexp"
	"strconv"
)

var jobIDRe = regexp.MustCompile(`Submitted batch job\s+(\d+)`)

// ExtractJobID parses the job identifier from sbatch output. The first
// "Submitted batch job <n>" marker wins. A missing marker or an identifier
// that does not fit an int is a *ParseError.
func ExtractJobID(stdout string) (int, error) {
	m := jobIDRe.FindStringSubmatch(stdout)
	if m == nil {
		return NoJob, NewParseError(SchedulerName, stdout, "no \"Submitted batch job\" marker", ErrJobIDParseFailed)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return NoJob, NewParseError(SchedulerName, stdout, "job ID out of range: "+m[1], ErrJobIDParseFailed)
	}
	return id, nil
}
