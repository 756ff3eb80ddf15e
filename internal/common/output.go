package common

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dtnitsch/downapk/models"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var (
	indexColor  = color.New(color.FgCyan, color.Bold)
	headerColor = color.New(color.FgYellow, color.Bold)
	okColor     = color.New(color.FgGreen)
)

// WriteOutput renders v as json or yaml, or calls text for the default format.
func WriteOutput(w io.Writer, format string, v interface{}, text func(io.Writer) error) error {
	switch strings.ToLower(format) {
	case "", "text":
		return text(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unknown format %q (want text, json or yaml)", ErrUsage, format)
	}
}

// PrintReleases writes the numbered release menu.
func PrintReleases(w io.Writer, releases []models.ReleaseSummary) error {
	for i, r := range releases {
		indexColor.Fprintf(w, "%d. ", i+1)
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}

// PrintVariants writes the numbered variant menu.
func PrintVariants(w io.Writer, variants []models.VariantDescriptor) error {
	for i, v := range variants {
		indexColor.Fprintf(w, "%d. ", i+1)
		if _, err := fmt.Fprintln(w, v.String()); err != nil {
			return err
		}
	}
	return nil
}

// Header prints a highlighted section title.
func Header(w io.Writer, format string, args ...interface{}) {
	headerColor.Fprintf(w, format+"\n", args...)
}

// Success prints a green status line.
func Success(w io.Writer, format string, args ...interface{}) {
	okColor.Fprintf(w, format+"\n", args...)
}
