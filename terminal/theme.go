package terminal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
)

// Theme maps message kinds to color names.
type Theme struct {
	Name         string `json:"name"`
	PromptColor  string `json:"promptColor"`
	TextColor    string `json:"textColor"`
	ErrorColor   string `json:"errorColor"`
	SuccessColor string `json:"successColor"`
	InfoColor    string `json:"infoColor"`
}

var builtinThemes = map[string]Theme{
	"dark": {
		Name:         "dark",
		PromptColor:  "green",
		TextColor:    "white",
		ErrorColor:   "red",
		SuccessColor: "green",
		InfoColor:    "cyan",
	},
	"light": {
		Name:         "light",
		PromptColor:  "black",
		TextColor:    "black",
		ErrorColor:   "red",
		SuccessColor: "green",
		InfoColor:    "blue",
	},
}

// ThemeManager loads, persists, and resolves the active theme.
type ThemeManager struct {
	currentTheme Theme
	configPath   string
}

// NewThemeManager loads the saved theme from the user's home directory, or
// installs the default dark theme on first run.
func NewThemeManager() (*ThemeManager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %v", err)
	}

	tm := &ThemeManager{
		configPath:   filepath.Join(homeDir, ".turboftp_theme.json"),
		currentTheme: builtinThemes["dark"],
	}

	if err := tm.load(); err != nil {
		if os.IsNotExist(err) {
			if err := tm.save(); err != nil {
				return nil, fmt.Errorf("failed to save default theme: %v", err)
			}
		} else {
			return nil, fmt.Errorf("failed to load theme: %v", err)
		}
	}
	return tm, nil
}

func (tm *ThemeManager) load() error {
	data, err := os.ReadFile(tm.configPath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &tm.currentTheme)
}

func (tm *ThemeManager) save() error {
	data, err := json.MarshalIndent(tm.currentTheme, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tm.configPath, data, 0644)
}

// SetTheme switches to a built-in theme and persists the choice.
func (tm *ThemeManager) SetTheme(name string) error {
	theme, ok := builtinThemes[name]
	if !ok {
		return fmt.Errorf("unknown theme: %s", name)
	}
	tm.currentTheme = theme
	return tm.save()
}

// ThemeName returns the active theme's name.
func (tm *ThemeManager) ThemeName() string {
	return tm.currentTheme.Name
}

// PromptColor returns the color for the prompt line.
func (tm *ThemeManager) PromptColor() *color.Color {
	return colorByName(tm.currentTheme.PromptColor)
}

// TextColor returns the color for ordinary output.
func (tm *ThemeManager) TextColor() *color.Color {
	return colorByName(tm.currentTheme.TextColor)
}

// ErrorColor returns the color for error messages.
func (tm *ThemeManager) ErrorColor() *color.Color {
	return colorByName(tm.currentTheme.ErrorColor)
}

// SuccessColor returns the color for success messages.
func (tm *ThemeManager) SuccessColor() *color.Color {
	return colorByName(tm.currentTheme.SuccessColor)
}

// InfoColor returns the color for informational messages.
func (tm *ThemeManager) InfoColor() *color.Color {
	return colorByName(tm.currentTheme.InfoColor)
}

var namedColors = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

func colorByName(name string) *color.Color {
	if attr, ok := namedColors[name]; ok {
		return color.New(attr)
	}
	return color.New(color.FgWhite)
}
