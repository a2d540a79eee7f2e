package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"pocket-notes/internal/api"
	"pocket-notes/internal/app"
	"pocket-notes/internal/autosave"
	"pocket-notes/internal/config"
	"pocket-notes/internal/models"
	"pocket-notes/internal/session"
	"pocket-notes/internal/storage"
	"pocket-notes/internal/tokens"
	"pocket-notes/internal/ui"
)

const usage = `Usage: notes <command> [flags]

Commands:
  login             sign in with -email and -password
  register          create an account
  logout            forget the stored session
  whoami            show the signed-in user
  categories        list categories
  category-create   create a category (-name, -color)
  notes             list notes (-category to filter)
  new               create an empty note and open it
  show <id>         print a note
  edit <id>         edit a note from stdin with autosave
  delete <id>       delete a note
  shortcuts         list editor shortcuts
`

type cli struct {
	cfg     *config.Config
	log     zerolog.Logger
	client  *api.Client
	session *session.Controller
	deps    app.Deps
	in      *bufio.Scanner
	out     io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := cfg.Logger()

	if err := os.MkdirAll(filepath.Dir(cfg.Client.StatePath), 0o700); err != nil {
		log.Fatal().Err(err).Msg("Failed to create state directory")
	}
	state, err := storage.OpenSQLite(cfg.Client.StatePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open state")
	}
	defer state.Close()

	client := api.New(cfg.Client.APIURL, tokens.New(state, log), api.WithLogger(log))
	c := &cli{
		cfg:     cfg,
		log:     log,
		client:  client,
		session: session.New(client, log),
		in:      bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
	}
	c.deps = app.Deps{
		API: client,
		Nav: ui.NavigatorFunc(func(route string) {
			log.Debug().Str("route", route).Msg("navigate")
		}),
		Notify: ui.NotifierFunc(func(t ui.Toast) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", t.Kind, t.Message)
		}),
		Log: log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := c.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		state.Close()
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login", "register":
		return c.authenticate(ctx, cmd, args)
	case "shortcuts":
		c.shortcuts()
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(c.out, usage)
		return nil
	}

	c.session.Start(ctx)
	if !c.session.IsAuthenticated() {
		return errors.New("not signed in, run `notes login` first")
	}

	switch cmd {
	case "logout":
		app.NewDashboard(c.deps, c.session).Logout()
		return nil
	case "whoami":
		u := c.session.User()
		fmt.Fprintf(c.out, "%s (id %d, joined %s)\n", u.Email, u.ID, u.DateJoined.Format("January 2, 2006"))
		return nil
	case "categories":
		return c.categories(ctx)
	case "category-create":
		return c.createCategory(ctx, args)
	case "notes":
		return c.notes(ctx, args)
	case "new":
		return c.newNote(ctx, args)
	case "show", "edit", "delete":
		if len(args) != 1 {
			return fmt.Errorf("%s needs a note id", cmd)
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad note id %q", args[0])
		}
		switch cmd {
		case "show":
			return c.show(ctx, id)
		case "edit":
			return c.edit(ctx, id)
		default:
			return c.remove(ctx, id)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) authenticate(ctx context.Context, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", os.Getenv("NOTES_PASSWORD"), "Account password")
	confirm := fs.String("confirm", "", "Repeat the password (register)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mode := app.ModeLogin
	if cmd == "register" {
		mode = app.ModeSignup
		if *confirm == "" {
			*confirm = *password
		}
	}

	form := app.NewAuthForm(c.session, c.deps.Nav)
	err := form.Submit(ctx, mode, app.AuthFields{Email: *email, Password: *password, PasswordConfirm: *confirm})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Signed in as %s\n", c.session.User().Email)
	return nil
}

func (c *cli) categories(ctx context.Context) error {
	cats, err := c.client.Categories(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tNOTES")
	for _, cat := range cats {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", cat.ID, cat.Name, ui.SwatchFor(&cat.Color).Name, cat.NotesCount)
	}
	return tw.Flush()
}

func (c *cli) createCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("category-create", flag.ContinueOnError)
	name := fs.String("name", "", "Category name")
	color := fs.String("color", ui.DefaultColor, "Hex color")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cat, err := c.client.CreateCategory(ctx, models.NewCategory{Name: *name, Color: *color})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Created category %d %q\n", cat.ID, cat.Name)
	return nil
}

func (c *cli) notes(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("notes", flag.ContinueOnError)
	category := fs.Int64("category", 0, "Only notes in this category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dash := app.NewDashboard(c.deps, c.session)
	var selected *int64
	if *category != 0 {
		selected = category
	}
	if err := dash.SelectCategory(ctx, selected); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "All categories (%d notes)\n", dash.TotalNotes())
	now := time.Now()
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tTITLE\tCONTENT")
	for _, n := range dash.Notes() {
		catName := ""
		if n.CategoryName != nil {
			catName = *n.CategoryName
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", n.ID, ui.FormatCardDate(n.UpdatedAt, now), catName,
			ui.CardTitle(n.Title), firstLine(ui.CardContent(n.Content), 40))
	}
	return tw.Flush()
}

func (c *cli) newNote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	category := fs.Int64("category", 0, "Category for the note")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dash := app.NewDashboard(c.deps, c.session)
	var selected *int64
	if *category != 0 {
		selected = category
	}
	if err := dash.SelectCategory(ctx, selected); err != nil {
		return err
	}
	note, err := dash.NewNote(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Created note %d\n", note.ID)
	return c.edit(ctx, note.ID)
}

func (c *cli) show(ctx context.Context, id int64) error {
	note, err := c.client.Note(ctx, id)
	if err != nil {
		return err
	}
	c.printNote(autosave.Draft{
		Title:         note.Title,
		Content:       note.Content,
		Category:      note.Category,
		CategoryName:  note.CategoryName,
		CategoryColor: note.CategoryColor,
	}, note.UpdatedAt)
	return nil
}

func (c *cli) printNote(d autosave.Draft, saved time.Time) {
	title := d.Title
	if title == "" {
		title = ui.TitlePlaceholder
	}
	category := "none"
	if d.CategoryName != nil {
		category = *d.CategoryName + " (" + ui.SwatchFor(d.CategoryColor).Name + ")"
	}
	fmt.Fprintf(c.out, "%s\nCategory: %s\n%s\n\n", title, category, ui.FormatLastEdited(saved))
	if d.Content == "" {
		fmt.Fprintln(c.out, ui.ContentPlaceholder)
		return
	}
	fmt.Fprintln(c.out, d.Content)
}

// edit reads editor commands from stdin. Plain lines are appended to the
// content; lines starting with ':' are commands.
func (c *cli) edit(ctx context.Context, id int64) error {
	ed, err := app.OpenEditor(ctx, c.deps, id,
		autosave.WithDelay(c.cfg.Client.AutosaveDelay),
		autosave.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	c.printNote(ed.Draft(), ed.LastSaved())
	fmt.Fprintln(c.out, "\n:t <title>  :c <category id>  :clear  :show  :d delete  :q close (Esc)  :wq save and close (Ctrl+Enter)")

	for c.in.Scan() {
		line := c.in.Text()
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case ":t":
			ed.SetTitle(arg)
		case ":c":
			catID, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
			if err != nil {
				fmt.Fprintln(c.out, "category id must be a number")
				continue
			}
			if err := ed.ChangeCategory(ctx, catID); errors.Is(err, autosave.ErrUnknownCategory) {
				fmt.Fprintln(c.out, "no such category")
			}
		case ":clear":
			ed.SetContent("")
		case ":show":
			c.printNote(ed.Draft(), ed.LastSaved())
			fmt.Fprintf(c.out, "[%s]\n", ed.State())
		case ":d", ":del":
			confirmed := false
			err := ed.Delete(ctx, func() bool {
				confirmed = c.confirm("Delete this note? [y/N] ")
				return confirmed
			})
			if confirmed && err == nil {
				return nil
			}
		case ":q", ":esc", ":wq":
			return ed.Close(ctx)
		default:
			content := ed.Draft().Content
			if content != "" {
				content += "\n"
			}
			ed.SetContent(content + line)
		}
	}
	if err := c.in.Err(); err != nil {
		c.log.Warn().Err(err).Msg("read stdin")
	}
	return ed.Close(ctx)
}

func (c *cli) remove(ctx context.Context, id int64) error {
	ed, err := app.OpenEditor(ctx, c.deps, id)
	if err != nil {
		return err
	}
	return ed.Delete(ctx, func() bool { return c.confirm(fmt.Sprintf("Delete note %d? [y/N] ", id)) })
}

func (c *cli) confirm(prompt string) bool {
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(c.in.Text()))
	return answer == "y" || answer == "yes"
}

func (c *cli) shortcuts() {
	for _, s := range ui.Shortcuts {
		fmt.Fprintf(c.out, "%-12s %s\n", strings.Join(s.Keys, "+"), s.Description)
	}
}

func firstLine(s string, limit int) string {
	s, _, _ = strings.Cut(s, "\n")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-3]) + "..."
	}
	return s
}
