package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/PvGGit/pv-retrieval/internal/backend"
	"github.com/PvGGit/pv-retrieval/internal/claim"
	"github.com/PvGGit/pv-retrieval/internal/correlation"
)

// Format is the encoding of a correlation report.
type Format string

const (
	FormatJSONLines Format = "jsonl"
	FormatYAML      Format = "yaml"
	FormatText      Format = "text"

	DefaultSourcePVCListPath = "source_pvcs.txt"
	DefaultTargetPVCListPath = "target_pvcs.txt"

	filePerm = 0o644
	noValue  = "-"
)

var Formats = []string{string(FormatJSONLines), string(FormatYAML), string(FormatText)}

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSONLines, FormatYAML, FormatText:
		return f, nil
	}

	return "", fmt.Errorf("unknown report format %q, must be one of: %s", s, strings.Join(Formats, ", "))
}

// WriteError is returned when an output artifact cannot be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// WritePVCList writes one namespace:name line per claim to the file at path.
// A non-empty header is written first as a # comment.
func WritePVCList(path string, header string, refs []claim.Ref) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodePVCList(w, header, refs)
	})
}

func EncodePVCList(w io.Writer, header string, refs []claim.Ref) error {
	bw := bufio.NewWriter(w)

	if header != "" {
		if _, err := fmt.Fprintf(bw, "# %s\n", header); err != nil {
			return err
		}
	}

	for _, ref := range refs {
		if _, err := fmt.Fprintln(bw, ref.String()); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteRecords writes the correlation records to the file at path.
func WriteRecords(path string, format Format, records []correlation.Record) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeRecords(w, format, records)
	})
}

// EncodeRecords encodes one record per line for jsonl and text, and one
// document per record for yaml.
func EncodeRecords(w io.Writer, format Format, records []correlation.Record) error {
	switch format {
	case FormatJSONLines:
		enc := json.NewEncoder(w)
		for i := range records {
			if err := enc.Encode(&records[i]); err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		for i := range records {
			if err := enc.Encode(&records[i]); err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
		}

		return enc.Close()
	case FormatText:
		bw := bufio.NewWriter(w)
		for i := range records {
			if _, err := fmt.Fprintln(bw, TextLine(&records[i])); err != nil {
				return err
			}
		}

		return bw.Flush()
	}

	return fmt.Errorf("unknown report format %q", format)
}

// TextLine renders a record as tab-separated status, source claim, target
// claim, source location and target location.
func TextLine(rec *correlation.Record) string {
	return strings.Join([]string{
		string(rec.Status),
		RefString(rec.Source),
		RefString(rec.Target),
		LocationString(rec.SourceBackend),
		LocationString(rec.TargetBackend),
	}, "\t")
}

func RefString(ref *claim.Ref) string {
	if ref == nil {
		return noValue
	}

	return ref.String()
}

func LocationString(id *backend.Identity) string {
	if id == nil {
		return noValue
	}

	if id.Supported() {
		return id.Location()
	}

	return id.String()
}

func writeFile(path string, encode func(w io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	var result *multierror.Error

	if err = encode(f); err != nil {
		result = multierror.Append(result, err)
	}

	if err = f.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	if err = result.ErrorOrNil(); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	return nil
}
