package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/capgains/docs"
	"github.com/google/subcommands"
)

type topicCmd struct {
	list bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "show documentation" }
func (*topicCmd) Usage() string {
	return `topic [-l] [<topic>...]

Show documentation topics in order, '*' shows them all. Without topic, show
the index.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "l", false, "list the topics")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list {
		topics, err := docs.Topics()
		if err != nil {
			return fail("Error reading doc: %v", err)
		}
		var b strings.Builder
		for _, t := range topics {
			fmt.Fprintf(&b, "%-12s %s\n", t.Name, t.Summary)
		}
		fmt.Print(b.String())
		return subcommands.ExitSuccess
	}

	names := f.Args()
	if len(names) == 0 {
		names = []string{docs.Index}
	}
	doc, err := docs.Expand(names...)
	if err != nil {
		return fail("Error reading doc: %v", err)
	}
	printMarkdown(doc)
	return subcommands.ExitSuccess
}
