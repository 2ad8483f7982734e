package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"budgeto/internal/calendar"
	"budgeto/internal/cli"
	"budgeto/internal/config"
	"budgeto/internal/core"
	"budgeto/internal/export"
	"budgeto/internal/log"
	gsheet "budgeto/internal/sheets/google"
	"budgeto/internal/state"
)

const usage = `Usage: budgeto <command> [flags]

Commands:
  init          create, migrate or roll over the stored budget
  show          list fixed and variable entries
  add-fixed     add a recurring monthly entry
  add-variable  add a one-off entry
  delete        delete an entry by id
  summary       totals for the current month
  set-currency  convert every entry and change the default currency
  format        format minor units as money
  parse         parse user input into minor units
  convert       convert between currencies at the fixed rates
  export        write a JSON export (or mirror it to Google Sheets)
  prefs         show or change theme, locale and dev mode
  reset         delete all stored data

Run "budgeto <command> -h" for command flags.
`

func main() {
	cli.LoadEnvFile()
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type command func(e *env, args []string) error

var commands = map[string]command{
	"init":         cmdInit,
	"show":         cmdShow,
	"add-fixed":    cmdAddFixed,
	"add-variable": cmdAddVariable,
	"delete":       cmdDelete,
	"summary":      cmdSummary,
	"set-currency": cmdSetCurrency,
	"format":       cmdFormat,
	"parse":        cmdParse,
	"convert":      cmdConvert,
	"export":       cmdExport,
	"prefs":        cmdPrefs,
	"reset":        cmdReset,
}

// env carries the streams and, once a command needs it, the opened store.
type env struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg *config.Config
	app *cli.App
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}

	e := &env{ctx: context.Background(), stdin: stdin, stdout: stdout, stderr: stderr}
	defer e.close()
	return cmd(e, args[1:])
}

func (e *env) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func (e *env) store() (*state.Store, error) {
	if e.app != nil {
		return e.app.Store, nil
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg, e.stderr).WithComponent(log.ComponentCLI)
	app, err := cli.OpenStore(e.ctx, cfg, logger, "budgeto", nil)
	if err != nil {
		return nil, err
	}
	e.cfg = cfg
	e.app = app
	return app.Store, nil
}

func (e *env) close() {
	if e.app == nil {
		return
	}
	if err := e.app.Close(); err != nil {
		fmt.Fprintf(e.stderr, "Warning: %v\n", err)
	}
}

// locale resolves the stored preference against $LANG.
func (e *env) locale(s *state.Store) core.Locale {
	pref, err := s.LocalePreference(e.ctx)
	if err != nil {
		pref = state.LocaleAuto
	}
	return state.ResolveLocale(pref, os.Getenv("LANG"))
}

func money(m core.Money, loc core.Locale) string {
	s, err := core.FormatMoney(m, true, loc)
	if err != nil {
		return fmt.Sprintf("%d %s", m.Amount, m.Currency)
	}
	return s
}

func cmdInit(e *env, args []string) error {
	fs := e.flags("init")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := e.store()
	if err != nil {
		return err
	}
	st, tr, err := s.Initialize(e.ctx)
	if err != nil {
		return err
	}

	if tr.Created {
		fmt.Fprintln(e.stdout, "created new budget")
	}
	if tr.Migrated {
		fmt.Fprintf(e.stdout, "migrated from version %d\n", tr.FromVersion)
	}
	if tr.CategoriesMigrated {
		fmt.Fprintln(e.stdout, "migrated category display keys")
	}
	if tr.Repaired {
		fmt.Fprintln(e.stdout, "repaired missing reset date")
	}
	if tr.RolledOver {
		fmt.Fprintln(e.stdout, "new month: variable entries cleared")
	}
	fmt.Fprintf(e.stdout, "version %d, %d fixed and %d variable entries, default currency %s, month started %s\n",
		st.Version, len(st.FixedEntries), len(st.VariableEntries), st.DefaultCurrency,
		st.LastReset.In(s.Calendar().Location()).Format(time.DateOnly))
	return nil
}

func entryLabel(e core.Entry) string {
	if e.SubcategoryID == "" {
		return e.CategoryID
	}
	return e.CategoryID + "/" + e.SubcategoryID
}

func cmdShow(e *env, args []string) error {
	fs := e.flags("show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := e.store()
	if err != nil {
		return err
	}
	st, err := s.LoadInitialized(e.ctx)
	if err != nil {
		return err
	}
	loc := e.locale(s)

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Fixed entries (%d)\n", len(st.FixedEntries))
	for _, f := range st.FixedEntries {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", f.ID, f.Type, entryLabel(f.Entry), money(f.Money, loc), f.Note)
	}
	fmt.Fprintf(tw, "Variable entries (%d)\n", len(st.VariableEntries))
	for _, v := range st.VariableEntries {
		when := v.Time().In(s.Calendar().Location()).Format("2006-01-02 15:04")
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n", when, v.ID, v.Type, entryLabel(v.Entry), money(v.Money, loc), v.Note)
	}
	return tw.Flush()
}

type entryFlags struct {
	typ, category, sub, amount, currency, note *string
}

func addEntryFlags(fs *flag.FlagSet) entryFlags {
	return entryFlags{
		typ:      fs.String("type", "expense", "income or expense"),
		category: fs.String("category", "", "category id (required)"),
		sub:      fs.String("sub", "", "subcategory id"),
		amount:   fs.String("amount", "", `amount as typed, e.g. "1.234,50" or "45 kr" (required)`),
		currency: fs.String("currency", "", "currency code (default: the budget's default currency)"),
		note:     fs.String("note", "", "free text note"),
	}
}

func (f entryFlags) entry(e *env, s *state.Store) (core.Entry, error) {
	if *f.category == "" || *f.amount == "" {
		return core.Entry{}, errors.New("missing required flags: category, amount")
	}
	typ, err := core.ParseEntryType(*f.typ)
	if err != nil {
		return core.Entry{}, err
	}

	var code core.Currency
	if *f.currency == "" {
		st, err := s.LoadInitialized(e.ctx)
		if err != nil {
			return core.Entry{}, err
		}
		code = st.DefaultCurrency
	} else if code, err = core.ParseCurrency(*f.currency); err != nil {
		return core.Entry{}, err
	}

	m, err := core.ParseMoney(*f.amount, code)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{Type: typ, CategoryID: *f.category, SubcategoryID: *f.sub, Money: m, Note: *f.note}, nil
}

func cmdAddFixed(e *env, args []string) error {
	fs := e.flags("add-fixed")
	ef := addEntryFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := e.store()
	if err != nil {
		return err
	}
	entry, err := ef.entry(e, s)
	if err != nil {
		return err
	}
	f, err := s.AddFixed(e.ctx, entry)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "added fixed entry %s (%s)\n", f.ID, money(f.Money, e.locale(s)))
	return nil
}

func cmdAddVariable(e *env, args []string) error {
	fs := e.flags("add-variable")
	ef := addEntryFlags(fs)
	at := fs.String("at", "", "when it happened, RFC 3339 (default: now)")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var geo *core.Geo
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["lat"] != set["lng"] {
		return errors.New("lat and lng must be given together")
	}
	if set["lat"] {
		geo = &core.Geo{Lat: *lat, Lng: *lng}
	}

	var when time.Time
	if *at != "" {
		t, err := calendar.ParseISO(*at)
		if err != nil {
			return err
		}
		when = t
	}

	s, err := e.store()
	if err != nil {
		return err
	}
	entry, err := ef.entry(e, s)
	if err != nil {
		return err
	}
	v, err := s.AddVariable(e.ctx, entry, when, geo)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "added variable entry %s (%s)\n", v.ID, money(v.Money, e.locale(s)))
	return nil
}

func cmdDelete(e *env, args []string) error {
	fs := e.flags("delete")
	id := fs.String("id", "", "entry id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		*id = fs.Arg(0)
	}
	if *id == "" {
		return errors.New("missing entry id")
	}
	s, err := e.store()
	if err != nil {
		return err
	}
	ok, err := s.DeleteEntry(e.ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("entry %q not found", *id)
	}
	fmt.Fprintf(e.stdout, "deleted %s\n", *id)
	return nil
}

func cmdSummary(e *env, args []string) error {
	fs := e.flags("summary")
	currency := fs.String("currency", "", "display currency (default: the budget's default currency)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var display core.Currency
	if *currency != "" {
		c, err := core.ParseCurrency(*currency)
		if err != nil {
			return err
		}
		display = c
	}
	s, err := e.store()
	if err != nil {
		return err
	}
	ov, err := s.Summary(e.ctx, display)
	if err != nil {
		return err
	}
	loc := e.locale(s)

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%04d-%02d (%s)\t\n", ov.Year, ov.Month, ov.Currency)
	fmt.Fprintf(tw, "income\t%s\t\n", money(ov.Income, loc))
	fmt.Fprintf(tw, "expenses\t%s\t\n", money(ov.Expenses, loc))
	fmt.Fprintf(tw, "net\t%s\t\n", money(ov.Net, loc))
	for _, c := range ov.ByCategory {
		fmt.Fprintf(tw, "  %s\t%s\t\n", c.CategoryID, money(c.Amount, loc))
	}
	return tw.Flush()
}

func cmdSetCurrency(e *env, args []string) error {
	fs := e.flags("set-currency")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: budgeto set-currency <code>")
	}
	code, err := core.ParseCurrency(fs.Arg(0))
	if err != nil {
		return err
	}
	s, err := e.store()
	if err != nil {
		return err
	}
	changed, err := s.SetDefaultCurrency(e.ctx, code)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintf(e.stdout, "default currency is already %s\n", code)
		return nil
	}
	fmt.Fprintf(e.stdout, "default currency is now %s\n", code)
	return nil
}

func cmdFormat(e *env, args []string) error {
	fs := e.flags("format")
	amount := fs.Int64("amount", 0, "amount in minor units")
	currency := fs.String("currency", "DKK", "currency code")
	locale := fs.String("locale", "da", "da or en")
	symbol := fs.Bool("symbol", true, "include the currency symbol")
	if err := fs.Parse(args); err != nil {
		return err
	}
	code, err := core.ParseCurrency(*currency)
	if err != nil {
		return err
	}
	loc, err := core.ParseLocale(*locale)
	if err != nil {
		return err
	}
	out, err := core.FormatMoney(core.Money{Amount: *amount, Currency: code}, *symbol, loc)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, out)
	return nil
}

func cmdParse(e *env, args []string) error {
	fs := e.flags("parse")
	currency := fs.String("currency", "DKK", "currency code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: budgeto parse [-currency CODE] <input>")
	}
	code, err := core.ParseCurrency(*currency)
	if err != nil {
		return err
	}
	m, err := core.ParseMoney(strings.Join(fs.Args(), " "), code)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%d %s\n", m.Amount, m.Currency)
	return nil
}

func cmdConvert(e *env, args []string) error {
	fs := e.flags("convert")
	amount := fs.Int64("amount", 0, "amount in minor units")
	from := fs.String("from", "DKK", "source currency")
	to := fs.String("to", "EUR", "target currency")
	locale := fs.String("locale", "en", "da or en")
	if err := fs.Parse(args); err != nil {
		return err
	}
	src, err := core.ParseCurrency(*from)
	if err != nil {
		return err
	}
	dst, err := core.ParseCurrency(*to)
	if err != nil {
		return err
	}
	loc, err := core.ParseLocale(*locale)
	if err != nil {
		return err
	}
	in := core.Money{Amount: *amount, Currency: src}
	out, err := core.ConvertCurrency(in, dst)
	if err != nil {
		return err
	}
	rate, err := core.GetExchangeRate(src, dst)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s = %s (rate %s)\n", money(in, loc), money(out, loc), strconv.FormatFloat(rate, 'f', -1, 64))
	return nil
}

func cmdExport(e *env, args []string) error {
	fs := e.flags("export")
	out := fs.String("out", ".", `directory to write into, or "-" for stdout`)
	sheets := fs.Bool("sheets", false, "mirror to the configured Google spreadsheet instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := e.store()
	if err != nil {
		return err
	}
	st, err := s.LoadInitialized(e.ctx)
	if err != nil {
		return err
	}
	ex := export.Build(st, s.Calendar().NowLocal())

	switch {
	case *sheets:
		if e.cfg.GoogleSpreadsheetID == "" {
			return errors.New("GOOGLE_SPREADSHEET_ID is not set")
		}
		sink, err := gsheet.NewExporter(e.ctx, e.cfg.GoogleSpreadsheetID, e.cfg.GoogleExportSheetName, e.app.Logger)
		if err != nil {
			return err
		}
		if err := sink.Write(e.ctx, ex); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "mirrored %d entries to spreadsheet\n", len(ex.Expenses))
	case *out == "-":
		return export.WriterSink{W: e.stdout}.Write(e.ctx, ex)
	default:
		sink := export.FileSink{Dir: *out}
		path, err := sink.Path(ex)
		if err != nil {
			return err
		}
		if err := sink.Write(e.ctx, ex); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "wrote %d entries to %s\n", len(ex.Expenses), path)
	}
	return nil
}

func cmdPrefs(e *env, args []string) error {
	fs := e.flags("prefs")
	theme := fs.String("theme", "", "light, dark or auto")
	locale := fs.String("locale", "", "da, en or auto")
	dev := fs.String("dev", "", "true or false")
	onboarded := fs.Bool("onboarded", false, "mark onboarding as completed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := e.store()
	if err != nil {
		return err
	}

	if *theme != "" {
		t, err := state.ParseTheme(*theme)
		if err != nil {
			return err
		}
		if err := s.SetTheme(e.ctx, t); err != nil {
			return err
		}
	}
	if *locale != "" {
		l, err := state.ParseLocalePreference(*locale)
		if err != nil {
			return err
		}
		if err := s.SetLocalePreference(e.ctx, l); err != nil {
			return err
		}
	}
	if *dev != "" {
		on, err := strconv.ParseBool(*dev)
		if err != nil {
			return fmt.Errorf("%w: dev %q", state.ErrInvalidPreference, *dev)
		}
		if err := s.SetDevMode(e.ctx, on); err != nil {
			return err
		}
	}
	if *onboarded {
		if err := s.CompleteOnboarding(e.ctx); err != nil {
			return err
		}
	}

	t, err := s.Theme(e.ctx)
	if err != nil {
		return err
	}
	l, err := s.LocalePreference(e.ctx)
	if err != nil {
		return err
	}
	devMode, err := s.IsDevMode(e.ctx)
	if err != nil {
		return err
	}
	onboarding, err := s.ShouldShowOnboarding(e.ctx)
	if err != nil {
		return err
	}
	lines := []string{
		"theme=" + string(t),
		"locale=" + string(l) + " (" + string(state.ResolveLocale(l, os.Getenv("LANG"))) + ")",
		"dev=" + strconv.FormatBool(devMode),
		"onboarding=" + strconv.FormatBool(onboarding),
	}
	if last, ok, err := s.LastOpened(e.ctx); err == nil && ok {
		lines = append(lines, "lastOpened="+calendar.FormatISO(last))
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(e.stdout, line)
	}
	return nil
}

func cmdReset(e *env, args []string) error {
	fs := e.flags("reset")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		ok, err := confirm(e.stdin, e.stdout, "This deletes every entry and preference. Type 'yes' to continue: ")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(e.stdout, "aborted")
			return nil
		}
	}
	s, err := e.store()
	if err != nil {
		return err
	}
	if err := s.Reset(e.ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, "all data deleted")
	return nil
}

// confirm only prints the prompt on a terminal so piped input stays quiet.
func confirm(stdin io.Reader, stdout io.Writer, prompt string) (bool, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(stdout, prompt)
	}
	scanner := bufio.NewScanner(stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, err
		}
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "yes" || answer == "y", nil
}
