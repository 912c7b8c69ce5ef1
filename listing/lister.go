// Package listing retrieves directory contents, preferring structured
// listings and degrading to a name-only walk on servers that refuse them.
package listing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"turboftp/retry"
	"turboftp/transfer"
)

// listBaseDelay is the base inter-attempt delay for listing retries.
const listBaseDelay = time.Second

// SizeUnknown marks entries whose size the server would not reveal.
const SizeUnknown int64 = -1

// Entry is one directory entry as shown to the user.
type Entry struct {
	Name     string
	Dir      bool
	Size     int64 // bytes, or SizeUnknown
	Modified time.Time
}

// Client is the slice of a server connection the lister needs.
// *ftpconn.Session satisfies this.
type Client interface {
	List(path string) ([]*ftp.Entry, error)
	NameList(path string) ([]string, error)
	ChangeDir(path string) error
	CurrentDir() (string, error)
	FileSize(path string) (int64, error)
}

// Lister lists directories over one Client connection.
type Lister struct {
	Client  Client
	Retries int

	// Logf, if set, receives retry and fallback messages.
	Logf func(format string, args ...interface{})

	// Sleep overrides the retry sleep, for tests.
	Sleep func(time.Duration)
}

// List returns the entries of path, directories first, names ordered
// case-insensitively. When the server rejects structured listings it falls
// back to bare names, classifying each by a directory-change probe and
// filling sizes one SIZE query at a time.
func (l *Lister) List(path string) ([]Entry, error) {
	pol := retry.Policy{
		Attempts: l.Retries,
		Delay:    listBaseDelay,
		Sleep:    l.Sleep,
		OnRetry: func(op string, attempt int, err error) {
			l.logf("retrying %s (attempt %d failed: %v)", op, attempt, err)
		},
	}

	var entries []Entry
	err := pol.Do("list "+path, func() error {
		es, err := l.listOnce(path)
		if err != nil {
			return err
		}
		entries = es
		return nil
	})
	if err != nil {
		return nil, &transfer.ProtocolError{Op: "list", Path: path, Err: err}
	}

	sortEntries(entries)
	return entries, nil
}

func (l *Lister) listOnce(path string) ([]Entry, error) {
	raw, err := l.Client.List(path)
	if err == nil {
		return convert(raw), nil
	}

	l.logf("structured listing of %s failed (%v), falling back to name list", path, err)
	return l.nameListFallback(path)
}

// nameListFallback builds entries from bare names. Each name is classified by
// attempting to change into it; sizes come from per-file SIZE queries and stay
// unknown when the server refuses them.
func (l *Lister) nameListFallback(path string) ([]Entry, error) {
	names, err := l.Client.NameList(path)
	if err != nil {
		return nil, fmt.Errorf("name list: %v", err)
	}

	cwd, err := l.Client.CurrentDir()
	if err != nil {
		return nil, fmt.Errorf("current dir: %v", err)
	}
	if path != "" && path != "." {
		if err := l.Client.ChangeDir(path); err != nil {
			return nil, fmt.Errorf("change dir %s: %v", path, err)
		}
		defer l.Client.ChangeDir(cwd)
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		name = baseName(name)
		if name == "" || name == "." || name == ".." {
			continue
		}
		e := Entry{Name: name, Size: SizeUnknown}
		if l.Client.ChangeDir(name) == nil {
			e.Dir = true
			if err := l.Client.ChangeDir(".."); err != nil {
				return nil, fmt.Errorf("restore dir after probing %s: %v", name, err)
			}
		} else if size, err := l.Client.FileSize(name); err == nil {
			e.Size = size
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func convert(raw []*ftp.Entry) []Entry {
	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		entry := Entry{
			Name:     e.Name,
			Dir:      e.Type == ftp.EntryTypeFolder,
			Size:     int64(e.Size),
			Modified: e.Time,
		}
		if entry.Dir {
			entry.Size = SizeUnknown
		}
		entries = append(entries, entry)
	}
	return entries
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Dir != entries[j].Dir {
			return entries[i].Dir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// baseName strips any directory prefix some servers include in NLST output.
func baseName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func (l *Lister) logf(format string, args ...interface{}) {
	if l.Logf != nil {
		l.Logf(format, args...)
	}
}
