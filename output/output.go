package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"

	"audio-fingerprint/utils"
)

// Format represents the output format type
type Format string

const (
	// FormatTable outputs an aligned text table (default for terminal)
	FormatTable Format = "table"
	// FormatJSON outputs as indented JSON
	FormatJSON Format = "json"
	// FormatYAML outputs as YAML
	FormatYAML Format = "yaml"
	// FormatMsgpack outputs the MessagePack encoding
	FormatMsgpack Format = "msgpack"
)

// Tabular is implemented by results that know how to lay themselves out as rows.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// ParseFormat resolves a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatTable, FormatJSON, FormatYAML, FormatMsgpack:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", name)
	}
}

// Write encodes result to w in the given format.
func Write(w io.Writer, result any, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatYAML:
		return writeYAML(w, result)
	case FormatMsgpack:
		return writeMsgpack(w, result)
	case FormatTable, "":
		return writeTable(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteFile writes result to path, or to stdout when path is empty.
func WriteFile(path string, result any, format Format) error {
	if path == "" {
		return Write(os.Stdout, result, format)
	}

	if err := utils.CreateFolder(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	return Write(f, result, format)
}

func writeJSON(w io.Writer, result any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func writeMsgpack(w io.Writer, result any) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode msgpack: %w", err)
	}
	return nil
}

// writeTable falls back to YAML for results without a tabular layout.
func writeTable(w io.Writer, result any) error {
	t, ok := result.(Tabular)
	if !ok {
		return writeYAML(w, result)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Header(), "\t"))
	for _, row := range t.Rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
