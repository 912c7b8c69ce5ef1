package terminal

import (
	"strings"
	"time"

	"github.com/c-bata/go-prompt"

	"turboftp/listing"
)

// RemoteBrowser is the slice of the client the completer needs to suggest
// remote names. Kept as an interface to avoid a dependency cycle with main.
type RemoteBrowser interface {
	List(path string) ([]listing.Entry, error)
	IsConnected() bool
	CurrentDir() string
}

// CommandCompleter suggests commands and remote path arguments.
type CommandCompleter struct {
	commands     []prompt.Suggest
	remoteFiles  []string
	remoteDirs   []string
	lastUpdate   time.Time
	cacheTimeout time.Duration
	browser      RemoteBrowser
}

// NewCommandCompleter creates a completer with the shell's command set.
func NewCommandCompleter() *CommandCompleter {
	return &CommandCompleter{
		commands: []prompt.Suggest{
			{Text: "open", Description: "Connect to an FTP server"},
			{Text: "close", Description: "Disconnect from the server"},
			{Text: "ls", Description: "List the remote directory"},
			{Text: "cd", Description: "Change remote directory"},
			{Text: "pwd", Description: "Show the remote directory"},
			{Text: "get", Description: "Download a file (resumable)"},
			{Text: "turbo", Description: "Download a file over N connections"},
			{Text: "lls", Description: "List a local directory"},
			{Text: "sysinfo", Description: "Show CPU/memory and suggested segment count"},
			{Text: "config", Description: "Show the active configuration"},
			{Text: "theme", Description: "Switch terminal theme (dark/light)"},
			{Text: "help", Description: "Show help"},
			{Text: "clear", Description: "Clear the screen"},
			{Text: "exit", Description: "Quit"},
		},
		cacheTimeout: 15 * time.Second,
	}
}

// SetBrowser attaches the remote side used for path suggestions.
func (c *CommandCompleter) SetBrowser(b RemoteBrowser) {
	c.browser = b
}

// ClearCache drops cached remote names, e.g. after cd or close.
func (c *CommandCompleter) ClearCache() {
	c.remoteFiles = nil
	c.remoteDirs = nil
	c.lastUpdate = time.Time{}
}

// Completer returns suggestions for the current input line.
func (c *CommandCompleter) Completer(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	words := strings.Fields(text)

	if len(words) == 0 || (len(words) == 1 && !strings.HasSuffix(text, " ")) {
		return c.suggestCommands(words)
	}
	return c.suggestArguments(words, strings.HasSuffix(text, " "))
}

func (c *CommandCompleter) suggestCommands(words []string) []prompt.Suggest {
	if len(words) == 0 {
		return c.commands
	}
	prefix := strings.ToLower(words[0])
	var filtered []prompt.Suggest
	for _, s := range c.commands {
		if strings.HasPrefix(s.Text, prefix) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func (c *CommandCompleter) suggestArguments(words []string, trailingSpace bool) []prompt.Suggest {
	cmd := strings.ToLower(words[0])
	prefix := ""
	if !trailingSpace {
		prefix = words[len(words)-1]
	}

	switch cmd {
	case "cd":
		c.maybeRefresh()
		return filterSuggest(c.remoteDirs, prefix, "Remote directory")
	case "get", "turbo":
		c.maybeRefresh()
		return filterSuggest(c.remoteFiles, prefix, "Remote file")
	case "ls":
		c.maybeRefresh()
		suggestions := filterSuggest(c.remoteDirs, prefix, "Remote directory")
		return append(suggestions, filterSuggest(c.remoteFiles, prefix, "Remote file")...)
	case "theme":
		return filterSuggest([]string{"dark", "light"}, prefix, "Theme")
	default:
		return nil
	}
}

func (c *CommandCompleter) maybeRefresh() {
	if time.Since(c.lastUpdate) > c.cacheTimeout {
		c.refresh()
	}
}

func filterSuggest(names []string, prefix, desc string) []prompt.Suggest {
	var suggestions []prompt.Suggest
	for _, name := range names {
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			suggestions = append(suggestions, prompt.Suggest{Text: name, Description: desc})
		}
	}
	return suggestions
}

func (c *CommandCompleter) refresh() {
	if c.browser == nil || !c.browser.IsConnected() {
		return
	}

	entries, err := c.browser.List(c.browser.CurrentDir())
	if err != nil {
		return // keep the stale cache
	}

	var files, dirs []string
	for _, e := range entries {
		if e.Dir {
			dirs = append(dirs, e.Name)
		} else {
			files = append(files, e.Name)
		}
	}
	c.remoteFiles = files
	c.remoteDirs = dirs
	c.lastUpdate = time.Now()
}
