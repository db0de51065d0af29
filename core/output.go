package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Report is what the CLI shows for one processed file.
type Report struct {
	File           string
	Result         *ProcessingResult
	PersonalFields []string
	Written        string // path of the cleaned file, "" when nothing was written
}

// Printer handles all display output for the CLI.
type Printer struct {
	JSON   bool
	Writer io.Writer
}

// NewPrinter creates a Printer writing to w, or to stdout when w is nil.
func NewPrinter(jsonMode bool, w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{JSON: jsonMode, Writer: w}
}

// PrintReport renders rep to the configured output.
func (p *Printer) PrintReport(rep Report) error {
	if p.JSON {
		return p.printJSON(rep)
	}
	p.printText(rep)
	return nil
}

func (p *Printer) printText(rep Report) {
	r := rep.Result
	fmt.Fprintf(p.Writer, "File  : %s\n", rep.File)
	fmt.Fprintf(p.Writer, "Format: %s\n", r.Original.ContentType)
	fmt.Fprintf(p.Writer, "GPS   : %s\n", yesNo(r.Flags.HasGPS))
	fmt.Fprintf(p.Writer, "Personal data: %s\n", yesNo(r.Flags.HasPersonalData))
	if len(rep.PersonalFields) > 0 {
		fmt.Fprintf(p.Writer, "  %s\n", strings.Join(rep.PersonalFields, ", "))
	}
	fmt.Fprintln(p.Writer)

	if len(r.Metadata) == 0 {
		fmt.Fprintln(p.Writer, "(no metadata found)")
		fmt.Fprintln(p.Writer)
	}
	for _, s := range Sections {
		entries := r.Metadata.Section(s)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(p.Writer, "── %s ──\n", s)
		for _, e := range entries {
			fmt.Fprintf(p.Writer, "  %-30s %s\n", e.Name+":", e.Value)
		}
		fmt.Fprintln(p.Writer)
	}

	if rep.Written != "" {
		fmt.Fprintf(p.Writer, "✓ Wrote %s (%s, %d → %d bytes, %d saved)\n",
			rep.Written, r.Strategy, r.OriginalSize, r.CleanedSize, r.Saved())
	}
}

func (p *Printer) printJSON(rep Report) error {
	type jsonField struct {
		Name    string `json:"name"`
		Section string `json:"section"`
		Code    uint16 `json:"code"`
		Kind    string `json:"kind"`
		Value   Value  `json:"value"`
	}
	type jsonOutput struct {
		ID              string      `json:"id"`
		FilePath        string      `json:"file"`
		ContentType     string      `json:"content_type"`
		HasGPS          bool        `json:"has_gps"`
		HasPersonalData bool        `json:"has_personal_data"`
		PersonalFields  []string    `json:"personal_fields"`
		Fields          []jsonField `json:"fields"`
		Strategy        Strategy    `json:"strategy"`
		OriginalSize    int         `json:"original_size"`
		CleanedSize     int         `json:"cleaned_size"`
		SavedBytes      int         `json:"saved_bytes"`
		CleanedType     string      `json:"cleaned_content_type"`
		Written         string      `json:"written,omitempty"`
	}

	r := rep.Result
	out := jsonOutput{
		ID:              r.ID,
		FilePath:        rep.File,
		ContentType:     r.Original.ContentType,
		HasGPS:          r.Flags.HasGPS,
		HasPersonalData: r.Flags.HasPersonalData,
		PersonalFields:  append([]string{}, rep.PersonalFields...),
		Fields:          []jsonField{},
		Strategy:        r.Strategy,
		OriginalSize:    r.OriginalSize,
		CleanedSize:     r.CleanedSize,
		SavedBytes:      r.Saved(),
		CleanedType:     r.Cleaned.ContentType,
		Written:         rep.Written,
	}
	for _, s := range Sections {
		for _, e := range r.Metadata.Section(s) {
			out.Fields = append(out.Fields, jsonField{
				Name:    e.Name,
				Section: s.String(),
				Code:    e.Code,
				Kind:    e.Value.Kind().String(),
				Value:   e.Value,
			})
		}
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	fmt.Fprintln(p.Writer, string(b))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// PrintError prints an error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, "✗ Error: "+msg)
}

// ResolveOutPath returns dst if non-empty. Otherwise it derives a path next
// to src: the base name plus suffix, with the extension that matches ct.
func ResolveOutPath(src, dst, suffix, ct string) string {
	if dst != "" {
		return dst
	}
	ext := filepath.Ext(src)
	base := strings.TrimSuffix(src, ext)
	if e := ExtForContentType(ct); e != "" && FormatForContentType(ct) != extMap[strings.ToLower(ext)] {
		ext = e
	}
	return base + suffix + ext
}
