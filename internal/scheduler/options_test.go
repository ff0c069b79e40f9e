package scheduler

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFlags(t *testing.T) {
	tests := []struct {
		name string
		opts OptionMap
		want []string
	}{
		{
			name: "text and numbers",
			opts: OptionMap{
				{Key: "job-name", Value: Text("trainA")},
				{Key: "cpus-per-task", Value: Int(4)},
				{Key: "mem", Value: Text("8G")},
			},
			want: []string{"--job-name=trainA", "--cpus-per-task=4", "--mem=8G"},
		},
		{
			name: "true flag is bare",
			opts: OptionMap{{Key: "exclusive", Value: Flag(true)}},
			want: []string{"--exclusive"},
		},
		{
			name: "false flag omitted",
			opts: OptionMap{
				{Key: "exclusive", Value: Flag(false)},
				{Key: "time", Value: Text("00:30:00")},
				{Key: "requeue", Value: Flag(false)},
			},
			want: []string{"--time=00:30:00"},
		},
		{
			name: "underscores become dashes",
			opts: OptionMap{{Key: " cpus_per_task ", Value: Int(2)}},
			want: []string{"--cpus-per-task=2"},
		},
		{
			name: "floats keep a fraction",
			opts: OptionMap{
				{Key: "ratio", Value: Float(0.25)},
				{Key: "whole", Value: Float(3)},
				{Key: "big", Value: Int(1 << 40)},
			},
			want: []string{"--ratio=0.25", "--whole=3.0", "--big=1099511627776"},
		},
		{
			name: "duration as slurm time",
			opts: OptionMap{{Key: "time", Value: Duration(26*time.Hour + 30*time.Minute)}},
			want: []string{"--time=1-02:30:00"},
		},
		{
			name: "malformed key passes through",
			opts: OptionMap{{Key: "we ird", Value: Text("x")}},
			want: []string{"--we ird=x"},
		},
		{
			name: "empty",
			opts: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeFlags(tt.opts)
			if !slices.Equal(got, tt.want) {
				t.Errorf("EncodeFlags() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeFlagsNeverEmitsFalse(t *testing.T) {
	opts := OptionMap{
		{Key: "a", Value: Flag(false)},
		{Key: "b", Value: Flag(true)},
		{Key: "c", Value: Flag(false)},
		{Key: "d", Value: Value{}},
	}
	for _, tok := range EncodeFlags(opts) {
		if tok != "--b" {
			t.Errorf("unexpected token %q", tok)
		}
	}
}

func TestOptionMapSet(t *testing.T) {
	var m OptionMap
	m.Set("time", Text("01:00:00"))
	m.Set("partition", Text("short"))
	m.Set("time", Text("02:00:00"))
	m.Set("cpus_per_task", Int(2))
	m.Set("cpus-per-task", Int(8))

	assert.Equal(t, []string{"--time=02:00:00", "--partition=short", "--cpus-per-task=8"}, EncodeFlags(m))
	assert.Len(t, m, 3)

	v, ok := m.Get("cpus-per-task")
	require.True(t, ok)
	assert.Equal(t, "8", v.String())

	m.Delete("partition")
	assert.Equal(t, []string{"--time=02:00:00", "--cpus-per-task=8"}, EncodeFlags(m))

	_, ok = m.Get("partition")
	assert.False(t, ok)
}

func TestOptionMapMerge(t *testing.T) {
	base := OptionMap{
		{Key: "time", Value: Text("01:00:00")},
		{Key: "partition", Value: Text("short")},
	}
	over := OptionMap{
		{Key: "partition", Value: Text("gpu")},
		{Key: "exclusive", Value: Flag(true)},
	}

	merged := base.Merge(over)
	assert.Equal(t, []string{"--time=01:00:00", "--partition=gpu", "--exclusive"}, EncodeFlags(merged))
	// base is untouched
	assert.Equal(t, []string{"--time=01:00:00", "--partition=short"}, EncodeFlags(base))
}

func TestParseOption(t *testing.T) {
	tests := []struct {
		raw     string
		wantKey string
		want    Value
		wantErr bool
	}{
		{raw: "exclusive", wantKey: "exclusive", want: Flag(true)},
		{raw: "--exclusive", wantKey: "exclusive", want: Flag(true)},
		{raw: "requeue=false", wantKey: "requeue", want: Flag(false)},
		{raw: "requeue=TRUE", wantKey: "requeue", want: Flag(true)},
		{raw: "ntasks=4", wantKey: "ntasks", want: Int(4)},
		{raw: "time=00:10:00", wantKey: "time", want: Text("00:10:00")},
		{raw: "mem=8G", wantKey: "mem", want: Text("8G")},
		{raw: "comment=a=b", wantKey: "comment", want: Text("a=b")},
		{raw: "=value", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			opt, err := ParseOption(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOption) {
					t.Fatalf("ParseOption(%q) error = %v, want ErrInvalidOption", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOption(%q) unexpected error: %v", tt.raw, err)
			}
			if opt.Key != tt.wantKey || opt.Value != tt.want {
				t.Errorf("ParseOption(%q) = %v=%v, want %v=%v", tt.raw, opt.Key, opt.Value, tt.wantKey, tt.want)
			}
		})
	}
}

func TestParseOptionsLaterWins(t *testing.T) {
	m, err := ParseOptions([]string{"time=01:00:00", "exclusive", "time=02:00:00"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--time=02:00:00", "--exclusive"}, EncodeFlags(m))

	_, err = ParseOptions([]string{"ok", "="})
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	opts := OptionMap{
		{Key: "job-name", Value: Text("trainA")},
		{Key: "time", Value: Text("00:30:00")},
		{Key: "cpus-per-task", Value: Int(4)},
		{Key: "mem", Value: Text("8G")},
		{Key: "exclusive", Value: Flag(true)},
		{Key: "requeue", Value: Flag(false)},
		{Key: "output", Value: Text("slurm-%j.out")},
	}

	decoded := DecodeFlags(EncodeFlags(opts))

	var want OptionMap
	for _, o := range opts {
		if o.Value.Enabled() {
			want = append(want, o)
		}
	}
	assert.Equal(t, want, decoded)
}

func TestDecodeFlagsSkipsPositional(t *testing.T) {
	m := DecodeFlags([]string{"--ntasks=2", "script.sh", "-v", "--", "--verbose"})
	assert.Equal(t, OptionMap{
		{Key: "ntasks", Value: Int(2)},
		{Key: "verbose", Value: Flag(true)},
	}, m)
}

func TestOptionsFromMap(t *testing.T) {
	m, err := OptionsFromMap(map[string]any{
		"time":          "00:10:00",
		"cpus_per_task": 4,
		"exclusive":     true,
		"requeue":       false,
		"ratio":         0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--cpus-per-task=4",
		"--exclusive",
		"--ratio=0.5",
		"--time=00:10:00",
	}, EncodeFlags(m))

	_, err = OptionsFromMap(map[string]any{"nodes": []int{1, 2}})
	assert.ErrorIs(t, err, ErrInvalidOption)

	m, err = OptionsFromMap(map[string]any{"nice": uint64(math.MaxInt64), "ntasks": uint(8)})
	require.NoError(t, err)
	assert.Equal(t, []string{"--nice=9223372036854775807", "--ntasks=8"}, EncodeFlags(m))

	_, err = OptionsFromMap(map[string]any{"nice": uint64(math.MaxInt64) + 1})
	assert.ErrorIs(t, err, ErrInvalidOption)
}
