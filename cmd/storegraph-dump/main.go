// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/storegraph/lib/codec"
	"github.com/bureau-foundation/storegraph/lib/wire"
)

func main() {
	os.Exit(run())
}

func run() int {
	var skipDiagnostic bool
	pflag.BoolVar(&skipDiagnostic, "no-diagnostic", false,
		"print only the graph summary, not the CBOR diagnostic notation")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: storegraph-dump [--no-diagnostic] <document-file|->\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	arguments := pflag.Args()
	if len(arguments) != 1 {
		pflag.Usage()
		return 2
	}

	data, err := readDocument(arguments[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if !skipDiagnostic {
		diagnostic, err := codec.Diagnose(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: malformed document: %v\n", err)
			return 1
		}
		fmt.Println(diagnostic)
	}

	var tree any
	if err := codec.Unmarshal(data, &tree); err != nil {
		fmt.Fprintf(os.Stderr, "error: malformed document: %v\n", err)
		return 1
	}

	summary := summarize(tree)
	fmt.Printf("nodes: %d  back-references: %d\n", summary.nodes, summary.backrefs)
	for _, kind := range summary.sortedKinds() {
		fmt.Printf("  %s: %d\n", kind, summary.kinds[kind])
	}
	if len(summary.keys) > 0 {
		fmt.Printf("keys carried: %d\n", len(summary.keys))
	}
	return 0
}

func readDocument(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// graphSummary accumulates counts while walking a decoded document.
type graphSummary struct {
	nodes    int
	backrefs int
	kinds    map[string]int
	keys     []string
}

func (s *graphSummary) sortedKinds() []string {
	kinds := make([]string, 0, len(s.kinds))
	for kind := range s.kinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func summarize(tree any) *graphSummary {
	summary := &graphSummary{kinds: make(map[string]int)}
	summary.walk(tree)
	return summary
}

func (s *graphSummary) walk(value any) {
	switch v := value.(type) {
	case codec.Tag:
		switch v.Number {
		case wire.TagNode:
			s.nodes++
			if content, ok := v.Content.([]any); ok && len(content) == 3 {
				if kind, ok := content[1].(string); ok {
					s.kinds[kind]++
				}
				if fields, ok := content[2].(map[string]any); ok {
					if token, ok := fields["_key"].(string); ok && token != "" {
						s.keys = append(s.keys, token)
					}
					s.walk(fields)
				}
			}
		case wire.TagBackref:
			s.backrefs++
		default:
			s.walk(v.Content)
		}
	case []any:
		for _, element := range v {
			s.walk(element)
		}
	case map[string]any:
		for _, element := range v {
			s.walk(element)
		}
	}
}
