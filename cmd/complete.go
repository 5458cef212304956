package cmd

import (
	"context"
	"flag"
	"time"

	"github.com/etnz/fxledger"
	"github.com/etnz/fxledger/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion returns the shell completion of fx. Install it with
// COMP_INSTALL=1 fx.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub: map[string]*complete.Command{},
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.yaml"),
			"v":      predict.Nothing,
			"md":     predict.Nothing,
		},
	}
	for _, cmds := range commands() {
		for _, c := range cmds {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			sub := &complete.Command{Flags: map[string]complete.Predictor{}}
			fs.VisitAll(func(f *flag.Flag) { sub.Flags[f.Name] = predictFlag(f) })
			sub.Args = predictArgs(c.Name())
			root.Sub[c.Name()] = sub
		}
	}
	return root
}

func predictFlag(f *flag.Flag) complete.Predictor {
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return predict.Nothing
	}
	switch f.Name {
	case "p", "from", "to":
		return recentPeriods(time.Now(), 12)
	case "o":
		return predict.Files("*.jsonl")
	}
	return predict.Something
}

func predictArgs(name string) complete.Predictor {
	switch name {
	case "edit", "rm-lot":
		return complete.PredictFunc(func(string) []string {
			return knownIDs(func(l *fxledger.Ledger) (ids []string) {
				for _, lot := range l.Lots() {
					ids = append(ids, lot.ID)
				}
				return ids
			})
		})
	case "rm-sale", "sales":
		return complete.PredictFunc(func(string) []string {
			return knownIDs(func(l *fxledger.Ledger) (ids []string) {
				for _, r := range l.Sales() {
					ids = append(ids, r.ID)
				}
				return ids
			})
		})
	case "import":
		return predict.Files("*.jsonl")
	case "topic":
		var names predict.Set
		for _, t := range docs.Topics() {
			names = append(names, t.Name)
		}
		return names
	}
	return nil
}

// recentPeriods returns the n periods up to the one of now, most recent first.
func recentPeriods(now time.Time, n int) predict.Set {
	set := make(predict.Set, 0, n)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		set = append(set, fxledger.PeriodOf(first.AddDate(0, -i, 0)).String())
	}
	return set
}

// knownIDs opens the ledger and lists IDs with list.
func knownIDs(list func(*fxledger.Ledger) []string) []string {
	s, err := openSession(context.Background())
	if err != nil {
		return nil
	}
	defer s.Close()
	return list(s.ledger)
}
