package commands

import (
	"github.com/spf13/pflag"

	"pbv-lab/internal/profile"
)

// paramFlags binds profile parameters. Only flags set on the command line
// override the PBV_ENGINE_* defaults.
type paramFlags struct {
	fs     *pflag.FlagSet
	window int
	bins   int
	center bool
	round  int
	pct    bool
	n      int
}

func bindParamFlags(fs *pflag.FlagSet, withPct bool) *paramFlags {
	f := &paramFlags{fs: fs}
	fs.IntVarP(&f.window, "window", "w", 0, "Trailing window size (default PBV_ENGINE_WINDOW)")
	fs.IntVarP(&f.bins, "bins", "b", 0, "Number of price bins (default PBV_ENGINE_BINS)")
	fs.BoolVar(&f.center, "center", false, "Label bins by center instead of lower bound")
	fs.IntVar(&f.round, "round", 0, "Decimal digits for labels and volumes, negative disables (default PBV_ENGINE_ROUND)")
	if withPct {
		fs.BoolVar(&f.pct, "pct", false, "Express bin volumes as fractions of the window total")
		fs.IntVarP(&f.n, "n", "n", 1, "Bins kept per row in top-N modes")
	}
	return f
}

func (f *paramFlags) apply(defaults profile.Params) profile.TopNParams {
	p := profile.TopNParams{Params: defaults, N: f.n}
	if f.fs.Changed("window") {
		p.WindowSize = f.window
	}
	if f.fs.Changed("bins") {
		p.Bins = f.bins
	}
	if f.fs.Changed("center") {
		p.CenterLabel = f.center
	}
	if f.fs.Changed("round") {
		p.Round = f.round
	}
	if f.fs.Changed("pct") {
		p.Pct = f.pct
	}
	return p
}
