package cmd

import (
	"flag"

	"github.com/etnz/capgains/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// argPredictors completes the positional arguments of some subcommands.
var argPredictors = map[string]complete.Predictor{
	"import":    predict.Files("*.csv"),
	"import-fx": predict.Files("*.csv"),
	"topic":     complete.PredictFunc(docs.Complete),
}

// flagPredictors completes flag values by flag name, other flags accept anything.
var flagPredictors = map[string]complete.Predictor{
	"db":     predict.Files("*.db"),
	"format": predict.Set{"term", "markdown", "html"},
	"v":      predict.Set{"debug", "info", "warn", "error"},
}

// Completion returns the shell completion of the commander's subcommands and
// of the global flags.
func Completion(c *subcommands.Commander) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flags(flag.CommandLine),
	}
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
		cmd.SetFlags(fs)
		sub := &complete.Command{Flags: flags(fs), Args: argPredictors[cmd.Name()]}
		if sub.Args == nil {
			sub.Args = predict.Nothing
		}
		root.Sub[cmd.Name()] = sub
	})
	return root
}

// flags predicts the flags of a flagset.
func flags(fs *flag.FlagSet) map[string]complete.Predictor {
	m := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if p, ok := flagPredictors[f.Name]; ok {
			m[f.Name] = p
			return
		}
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			m[f.Name] = predict.Nothing
			return
		}
		m[f.Name] = predict.Something
	})
	return m
}

// IsCommand reports whether 'name' is a registered subcommand.
func IsCommand(c *subcommands.Commander, name string) bool {
	found := false
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		found = found || cmd.Name() == name
	})
	return found
}
