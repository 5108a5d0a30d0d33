// Package docs embeds the cgt documentation.
//
// readme.md is the index: each "* name: summary" line lists a topic, in
// reading order. The topics are also a walkthrough, their examples are meant
// to run one after the other against the same ledger.
package docs

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
)

//go:embed *.md
var files embed.FS

// Index is the topic shown when none is asked for.
const Index = "readme"

// Topic is an entry of the index.
type Topic struct {
	Name    string
	Summary string
}

var topicLine = regexp.MustCompile(`^\*\s+([^:\s]+):\s*(.*)$`)

// Topics returns the topics listed in the index, in order.
func Topics() ([]Topic, error) {
	content, err := files.ReadFile(Index + ".md")
	if err != nil {
		return nil, err
	}
	var topics []Topic
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		if m := topicLine.FindStringSubmatch(sc.Text()); m != nil {
			topics = append(topics, Topic{Name: m[1], Summary: strings.TrimSpace(m[2])})
		}
	}
	return topics, sc.Err()
}

// Read returns the markdown of a single topic.
func Read(name string) (string, error) {
	content, err := files.ReadFile(name + ".md")
	if err != nil {
		return "", fmt.Errorf("unknown topic %q: %w", name, err)
	}
	return string(content), nil
}

// Expand concatenates the given topics. "*" stands for every topic of the
// index.
func Expand(names ...string) (string, error) {
	var b strings.Builder
	for _, name := range names {
		batch := []string{name}
		if name == "*" {
			topics, err := Topics()
			if err != nil {
				return "", err
			}
			batch = batch[:0]
			for _, t := range topics {
				batch = append(batch, t.Name)
			}
		}
		for _, n := range batch {
			content, err := Read(n)
			if err != nil {
				return "", err
			}
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// Complete returns the names of the topics starting with 'prefix'.
func Complete(prefix string) []string {
	topics, err := Topics()
	if err != nil {
		return nil
	}
	var names []string
	for _, t := range topics {
		if strings.HasPrefix(t.Name, prefix) {
			names = append(names, t.Name)
		}
	}
	return names
}
