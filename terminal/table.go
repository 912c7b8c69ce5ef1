// Package terminal renders listings, themes, and completions for the
// interactive shell.
package terminal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"turboftp/listing"
	"turboftp/progress"
)

// TableFormatter renders directory listings as aligned tables.
type TableFormatter struct {
	table *tablewriter.Table
}

// NewTableFormatter creates a formatter writing to stdout.
func NewTableFormatter() *TableFormatter {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Type", "Size", "Modified")
	table.Options(
		tablewriter.WithRendition(tw.Rendition{Borders: tw.Border{Left: tw.Pending, Right: tw.Pending, Top: tw.Pending, Bottom: tw.Pending}}),
		tablewriter.WithPadding(tw.Padding{Left: "\t", Right: "\t"}),
	)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.MaxWidth = 0
		cfg.Header = tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		}
		cfg.Row = tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		}
	})

	return &TableFormatter{table: table}
}

// FormatRemoteDirectory renders a remote listing.
func (tf *TableFormatter) FormatRemoteDirectory(entries []listing.Entry) error {
	if len(entries) == 0 {
		fmt.Println("Directory is empty")
		return nil
	}

	tf.table.Reset()
	tf.table.Header("Name", "Type", "Size", "Modified")

	for _, e := range entries {
		name := e.Name
		fileType := "file"
		size := progress.FormatBytes(e.Size)
		if e.Dir {
			name += "/"
			fileType = "dir"
			size = "-"
		} else if ext := filepath.Ext(e.Name); ext != "" {
			fileType = strings.ToUpper(strings.TrimPrefix(ext, "."))
		}
		if len(name) > 50 {
			name = name[:47] + "..."
		}

		modified := "-"
		if !e.Modified.IsZero() {
			modified = e.Modified.Format("Jan 02 15:04")
		}

		tf.table.Append([]string{name, fileType, size, modified})
	}

	return tf.table.Render()
}

// FormatLocalDirectory renders the contents of a local path.
func (tf *TableFormatter) FormatLocalDirectory(path string) error {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return err
	}

	entries := make([]listing.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, listing.Entry{
			Name:     de.Name(),
			Dir:      de.IsDir(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	return tf.FormatRemoteDirectory(entries)
}
