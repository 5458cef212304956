// Package docs holds the user manual of fx, one markdown file per topic.
package docs

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed *.md
var pages embed.FS

// Index is the page shown when no topic is asked for. It is not a topic.
const Index = "readme"

// Topic is one page of the manual.
type Topic struct {
	Name  string // file name without the .md extension
	Title string // first level one heading
}

// Topics lists the topics of the manual, sorted by name.
func Topics() []Topic {
	entries, err := pages.ReadDir(".")
	if err != nil {
		return nil
	}
	var topics []Topic
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".md")
		if !ok || name == Index {
			continue
		}
		content, _ := pages.ReadFile(e.Name())
		topics = append(topics, Topic{Name: name, Title: title(string(content))})
	}
	return topics
}

func title(page string) string {
	for line := range strings.Lines(page) {
		if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return t
		}
	}
	return ""
}

// Read returns the pages of the named topics, in order. "*" stands for every
// topic. The index page is read by its name.
func Read(names ...string) (string, error) {
	var b strings.Builder
	for _, name := range names {
		if name == "*" {
			for _, t := range Topics() {
				if err := readInto(&b, t.Name); err != nil {
					return "", err
				}
			}
			continue
		}
		if err := readInto(&b, name); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func readInto(b *strings.Builder, name string) error {
	content, err := pages.ReadFile(name + ".md")
	if err != nil {
		return fmt.Errorf("unknown topic %q, see 'fx topic -list'", name)
	}
	b.Write(content)
	b.WriteString("\n")
	return nil
}
