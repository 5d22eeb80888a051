package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Herman-H/Snake-Robot-Display/internal/cli/output"
	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/core/service"
	"github.com/Herman-H/Snake-Robot-Display/internal/storage/simlog"
)

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarise a recorded simulation log",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "frames",
				Usage: "List every recorded frame instead of the summary",
			},
		},
		Action: inspectAction,
	}
}

// SampleCommand returns the sample command.
func SampleCommand() *cli.Command {
	return &cli.Command{
		Name:      "sample",
		Usage:     "Interpolate a recorded log at a point in time",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:     "at",
				Aliases:  []string{"t"},
				Usage:    "Query time in simulation seconds",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "section",
				Aliases: []string{"s"},
				Usage:   "Only show this section (0-based)",
				Value:   -1,
			},
		},
		Action: sampleAction,
	}
}

// logSummary describes a recorded log.
type logSummary struct {
	Path      string  `json:"path" yaml:"path"`
	Sections  int     `json:"sections" yaml:"sections"`
	Samples   int     `json:"samples" yaml:"samples"`
	FirstTime float32 `json:"first_time" yaml:"first_time"`
	LastTime  float32 `json:"last_time" yaml:"last_time"`
	Duration  float32 `json:"duration" yaml:"duration"`
	MeanDT    float32 `json:"mean_dt" yaml:"mean_dt"`
	MinDT     float32 `json:"min_dt" yaml:"min_dt" table:"wide"`
	MaxDT     float32 `json:"max_dt" yaml:"max_dt" table:"wide"`
	Bytes     uint64  `json:"bytes" yaml:"bytes" table:"wide"`
}

// summarize computes the timing statistics of s.
func summarize(path string, s *simlog.Series) logSummary {
	sum := logSummary{
		Path:      path,
		Sections:  s.Sections,
		Samples:   s.Len(),
		FirstTime: s.FirstTimestamp(),
		LastTime:  s.LastTimestamp(),
		Bytes:     simlog.EncodedSize(uint32(s.Sections), uint32(s.Len())),
	}
	sum.Duration = sum.LastTime - sum.FirstTime
	if s.Len() < 2 {
		return sum
	}

	sum.MeanDT = sum.Duration / float32(s.Len()-1)
	sum.MinDT = s.Frames[1].T - s.Frames[0].T
	for i := 1; i < s.Len(); i++ {
		dt := s.Frames[i].T - s.Frames[i-1].T
		sum.MinDT = min(sum.MinDT, dt)
		sum.MaxDT = max(sum.MaxDT, dt)
	}
	return sum
}

// frameRow is one recorded frame in the --frames listing.
type frameRow struct {
	Index int               `json:"index" yaml:"index"`
	T     float32           `json:"t" yaml:"t"`
	Head  domain.HeadPose   `json:"head" yaml:"head"`
	Agg   domain.Aggregates `json:"aggregates" yaml:"aggregates" table:"wide"`
}

func inspectAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("log file path required")
	}

	series, err := simlog.Open(path)
	if err != nil {
		return err
	}

	if !c.Bool("frames") {
		return printResult(c, summarize(path, series))
	}

	rows := make([]frameRow, series.Len())
	for i, f := range series.Frames {
		rows[i] = frameRow{Index: i, T: f.T, Head: f.Head, Agg: domain.Aggregate(f.Sections)}
	}
	return printResult(c, rows)
}

// sectionRow is one interpolated section.
type sectionRow struct {
	Index                int `json:"index" yaml:"index"`
	domain.SectionSample `yaml:",inline"`
}

// sampleResult is an interpolated frame with its bracket.
type sampleResult struct {
	T          float32           `json:"t" yaml:"t"`
	I1         int               `json:"i1" yaml:"i1"`
	I2         int               `json:"i2" yaml:"i2"`
	Scale      float32           `json:"scale" yaml:"scale"`
	Head       domain.HeadPose   `json:"head" yaml:"head"`
	Aggregates domain.Aggregates `json:"aggregates" yaml:"aggregates"`
	Sections   []sectionRow      `json:"sections" yaml:"sections"`
}

func sampleAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("log file path required")
	}

	src, err := service.OpenFile(path)
	if err != nil {
		return err
	}

	t := float32(c.Float64("at"))
	frame, err := src.FrameAt(t)
	if err != nil {
		return err
	}
	params, err := src.Params()
	if err != nil {
		return err
	}

	if i := c.Int("section"); i >= 0 {
		s, err := src.Section(i)
		if err != nil {
			return err
		}
		return printResult(c, []sectionRow{{Index: i, SectionSample: s}})
	}

	res := sampleResult{
		T:          frame.T,
		I1:         params.I1,
		I2:         params.I2,
		Scale:      params.Scale,
		Head:       frame.Head,
		Aggregates: domain.Aggregate(frame.Sections),
		Sections:   make([]sectionRow, len(frame.Sections)),
	}
	for i, s := range frame.Sections {
		res.Sections[i] = sectionRow{Index: i, SectionSample: s}
	}

	if _, ok := formatter(c).(*output.TableFormatter); ok {
		return printSampleTable(c, res)
	}
	return printResult(c, res)
}

// printSampleTable renders the head pose and bracket as a summary line
// followed by one row per section.
func printSampleTable(c *cli.Context, res sampleResult) error {
	w := outWriter(c)
	fmt.Fprintf(w, "t=%g bracket=[%d,%d] scale=%g head=(%g, %g, %g)\n\n",
		res.T, res.I1, res.I2, res.Scale, res.Head.X, res.Head.Y, res.Head.Angle)
	if err := printResult(c, res.Sections); err != nil {
		return err
	}
	if c.Bool("wide") {
		fmt.Fprintln(w)
		return printResult(c, res.Aggregates)
	}
	return nil
}

