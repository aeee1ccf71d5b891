package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/outline"
	"github.com/dgallion1/docnav/internal/parser"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "outline <file>",
	Short: "Print the navigable outline of a Markdown or HTML page",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutline,
}

func init() {
	rootCmd.Flags().String("format", "text", "output format: text, json or html")
	rootCmd.Flags().String("active", "", "anchor id to mark as active")
	rootCmd.SilenceUsage = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runOutline(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	active, _ := cmd.Flags().GetString("active")

	items, err := loadOutline(args[0], active)
	if err != nil {
		return err
	}
	return writeOutline(cmd.OutOrStdout(), items, format)
}

func loadOutline(path, active string) ([]outline.Item, error) {
	p, err := parser.ForFile(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := p.Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	forest, err := doctree.BuildTree(doc.Headings)
	if err != nil {
		return nil, err
	}
	return outline.Build(forest, active, outline.DefaultClassifier), nil
}

func writeOutline(w io.Writer, items []outline.Item, format string) error {
	switch format {
	case "text":
		writeText(w, items, 0)
		return nil
	case "json":
		if items == nil {
			items = []outline.Item{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "html":
		if err := outline.RenderHTML(w, items); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeText(w io.Writer, items []outline.Item, level int) {
	for _, it := range items {
		marker := "-"
		if it.Active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s%s %s (%s)\n", strings.Repeat("  ", level), marker, it.Label, it.Href)
		writeText(w, it.Children, level+1)
	}
}
