// Package ui holds the presentation pieces shared by the view models and the
// terminal front end: navigation and toast ports, placeholders, the category
// palette and date formatting.
package ui

import (
	"strconv"
	"strings"
	"time"
)

const (
	RouteList  = "/"
	RouteLogin = "/login"

	TitlePlaceholder   = "Note Title"
	ContentPlaceholder = "Pour your heart out..."
	UntitledCard       = "Untitled"
	EmptyCardContent   = "No content yet..."

	MaxTitleLength = 255
)

func NoteRoute(id int64) string {
	return "/notes/" + strconv.FormatInt(id, 10)
}

type Navigator interface {
	Navigate(route string)
}

type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastError
)

func (k ToastKind) String() string {
	if k == ToastError {
		return "error"
	}
	return "success"
}

type Toast struct {
	Message string
	Kind    ToastKind
}

type Notifier interface {
	Notify(t Toast)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(t Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

type nop struct{}

func (nop) Navigate(string) {}
func (nop) Notify(Toast)    {}

// Nop ignores navigation and toasts.
var Nop = nop{}

// Palette

const (
	ColorPeach = "#F5C4A1"
	ColorLemon = "#F5E6A3"
	ColorTeal  = "#A8D5D8"

	DefaultColor = ColorPeach
)

type Swatch struct {
	Name   string
	Fill   string
	Border string
	Dot    string
}

var palette = map[string]Swatch{
	ColorPeach: {Name: "peach", Fill: ColorPeach, Border: "#EF9C66", Dot: "#E8A87C"},
	ColorLemon: {Name: "lemon", Fill: ColorLemon, Border: "#E8D87C", Dot: "#E8D87C"},
	ColorTeal:  {Name: "teal", Fill: ColorTeal, Border: "#7CB8BC", Dot: "#7CB8BC"},
}

// SwatchFor maps a category color to its swatch. Unknown or missing colors
// fall back to peach.
func SwatchFor(color *string) Swatch {
	if color != nil {
		if s, ok := palette[strings.ToUpper(*color)]; ok {
			return s
		}
	}
	return palette[DefaultColor]
}

// Dates

// FormatLastEdited renders the editor header, e.g.
// "Last Edited: January 2, 2026 at 3:04pm".
func FormatLastEdited(t time.Time) string {
	return "Last Edited: " + t.Format("January 2, 2006") + " at " + strings.ToLower(t.Format("3:04PM"))
}

// FormatCardDate renders a note card date relative to now.
func FormatCardDate(t, now time.Time) string {
	days := int(now.Sub(t).Hours() / 24)
	switch days {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	default:
		return t.Format("January 2")
	}
}

func CardTitle(title string) string {
	if title == "" {
		return UntitledCard
	}
	return title
}

func CardContent(content string) string {
	if content == "" {
		return EmptyCardContent
	}
	return content
}

type Shortcut struct {
	Keys        []string
	Description string
}

var Shortcuts = []Shortcut{
	{Keys: []string{"Esc"}, Description: "Close note / modal"},
	{Keys: []string{"Ctrl", "Enter"}, Description: "Save and close note"},
	{Keys: []string{"Del"}, Description: "Delete note (when viewing)"},
}
