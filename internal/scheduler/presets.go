package scheduler

import "strconv"

// GPUPreset describes a common GPU batch request.
type GPUPreset struct {
	GPUs        int    // Defaults to 1
	GresType    string // Defaults to "gpu"
	Time        string // Defaults to "01:00:00"
	Partition   string
	Mem         string
	CPUsPerTask int
}

// DefaultGPUOptions builds sbatch options for a GPU job:
// time and gres always, partition, mem and cpus-per-task when set.
func DefaultGPUOptions(p GPUPreset) OptionMap {
	gpus := p.GPUs
	if gpus <= 0 {
		gpus = 1
	}
	gres := p.GresType
	if gres == "" {
		gres = "gpu"
	}
	walltime := p.Time
	if walltime == "" {
		walltime = "01:00:00"
	}

	opts := OptionMap{
		{Key: "time", Value: Text(walltime)},
		{Key: "gres", Value: Text(gres + ":" + strconv.Itoa(gpus))},
	}
	if p.Partition != "" {
		opts.Set("partition", Text(p.Partition))
	}
	if p.Mem != "" {
		opts.Set("mem", Text(p.Mem))
	}
	if p.CPUsPerTask > 0 {
		opts.Set("cpus-per-task", Int(int64(p.CPUsPerTask)))
	}
	return opts
}
