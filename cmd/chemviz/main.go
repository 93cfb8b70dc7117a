// Command chemviz is the terminal client for the ChemViz backend.
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
	"strconv"
	"strings"
	"syscall"

	"chemviz-dashboard/internal/bootstrap"
	"chemviz-dashboard/internal/config"
	"chemviz-dashboard/internal/dashboard"
	"chemviz-dashboard/internal/dto"
	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/pkg/logger"
	"chemviz-dashboard/internal/table"
	"chemviz-dashboard/internal/widget"
	"chemviz-dashboard/pkg/chemapi"
	pkgEvents "chemviz-dashboard/pkg/events"
	pktNats "chemviz-dashboard/pkg/nats"

	"github.com/fatih/color"
)

const usage = `usage: chemviz <command> [flags]

commands:
  login     -u <username> [-p <password>]
  register  -u <username> [-e <email>] [-p <password>]
  logout
  whoami
  upload    <file.csv>
  latest    [-sort <column>] [-desc]
  history
  show      <id> [-sort <column>] [-desc]
  delete    <id>
  report    <id> [-out <dir>]
  events
`

var (
	errUsage = errors.New("invalid usage")
	// errReported means the failure is already on screen.
	errReported = errors.New("reported")
)

type app struct {
	core *bootstrap.Core
	out  io.Writer
	in   *bufio.Reader
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core := bootstrap.NewCore(cfg, logger.NewIsolatedLogger(cfg.App.LogFilePath), nil)
	defer core.Close()

	a := &app{core: core, out: os.Stdout, in: bufio.NewReader(os.Stdin)}
	if err := core.Sessions.Restore(ctx); err != nil {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Could not read saved session: %v\n", err)
	}

	err := a.run(ctx, os.Args[1], os.Args[2:])
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	case errors.Is(err, errReported):
		os.Exit(1)
	case err != nil:
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "events":
		return a.events(ctx)
	}

	if a.core.Sessions.Current() == nil {
		return errors.New("not logged in, run: chemviz login -u <username>")
	}

	switch cmd {
	case "upload":
		return a.upload(ctx, args)
	case "latest":
		return a.latest(ctx, args)
	case "history":
		return a.history(ctx)
	case "show":
		return a.show(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "report":
		return a.report(ctx, args)
	}
	return errUsage
}

// --- Session ---

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *password == "" {
		*password = a.prompt("Password: ")
	}

	sess, err := a.core.Sessions.Login(ctx, &dto.LoginRequest{Username: *username, Password: *password})
	if err != nil {
		return authError(err)
	}
	color.New(color.FgGreen).Fprintf(a.out, "Logged in as %s\n", sess.Username)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email (optional)")
	password := fs.String("p", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *password == "" {
		*password = a.prompt("Password: ")
	}

	sess, err := a.core.Sessions.Register(ctx, &dto.RegisterRequest{
		Username: *username,
		Email:    *email,
		Password: *password,
	})
	if err != nil {
		return authError(err)
	}
	color.New(color.FgGreen).Fprintf(a.out, "Account created. Logged in as %s\n", sess.Username)
	return nil
}

// authError shows the backend's field messages rather than the wrapped chain.
func authError(err error) error {
	var reqErr *chemapi.RequestError
	if errors.As(err, &reqErr) {
		return errors.New(reqErr.Message())
	}
	return err
}

func (a *app) logout(ctx context.Context) error {
	if err := a.core.Sessions.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) whoami() error {
	sess := a.core.Sessions.Current()
	if sess == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintln(a.out, sess.Username)
	return nil
}

func (a *app) prompt(label string) string {
	fmt.Fprint(a.out, label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

// --- Dashboard ---

func (a *app) upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	dc := a.core.Dashboard
	err = dc.UploadFile(ctx, args[0], f)
	widget.PrintUpload(a.out, dc.State().Upload)
	if dc.State().Upload.Status == dashboard.UploadError {
		return errReported
	}
	if err != nil {
		a.printDashboard()
		return errReported
	}
	fmt.Fprintln(a.out)
	a.printDashboard()
	return nil
}

func (a *app) latest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("latest", flag.ContinueOnError)
	sortKey := fs.String("sort", "", "column: equipment_name, equipment_type, flowrate, pressure, temperature")
	desc := fs.Bool("desc", false, "sort descending")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := a.applySort(*sortKey, *desc); err != nil {
		return err
	}

	_ = a.core.Dashboard.LoadLatest(ctx)
	a.printDashboard()
	return nil
}

func (a *app) printDashboard() {
	dc := a.core.Dashboard
	st := dc.State()
	var view *widget.DatasetView
	if st.Dataset != nil {
		view = widget.BuildDataset(st.Dataset, dc.SortedRecords(st.Dataset), dc.Averages(st.Dataset), st.Sort)
	}
	widget.PrintDashboard(a.out, widget.BuildDashboard(st, view))
}

// applySort clicks the column header until the table is in the wanted order.
func (a *app) applySort(key string, desc bool) error {
	if key == "" && !desc {
		return nil
	}
	dc := a.core.Dashboard
	if key == "" {
		key = string(dc.State().Sort.Key)
	}
	if err := dc.SortBy(key); err != nil {
		return err
	}
	want := table.Ascending
	if desc {
		want = table.Descending
	}
	if dc.State().Sort.Direction != want {
		return dc.SortBy(key)
	}
	return nil
}

// --- History ---

func (a *app) history(ctx context.Context) error {
	dc := a.core.Dashboard
	if err := dc.Navigate(dashboard.PageHistory); err != nil {
		return err
	}
	_ = dc.LoadHistory(ctx)
	widget.PrintHistory(a.out, widget.BuildHistory(dc.State(), nil))
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	id, rest, err := leadingID(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	sortKey := fs.String("sort", "", "column to sort by")
	desc := fs.Bool("desc", false, "sort descending")
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}
	if err := a.applySort(*sortKey, *desc); err != nil {
		return err
	}

	dc := a.core.Dashboard
	if err := dc.Navigate(dashboard.PageHistory); err != nil {
		return err
	}
	if err := dc.SelectHistoryEntry(ctx, id); err != nil {
		return errors.New(dc.State().DetailError)
	}

	st := dc.State()
	widget.PrintDataset(a.out, widget.BuildDataset(st.Detail, dc.SortedRecords(st.Detail), dc.Averages(st.Detail), st.Sort))
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	id, _, err := leadingID(args)
	if err != nil {
		return err
	}
	dc := a.core.Dashboard
	if err := dc.DeleteDataset(ctx, id); err != nil {
		return errors.New(dc.State().HistoryError)
	}
	fmt.Fprintf(a.out, "Deleted dataset #%d\n", id)
	return nil
}

func (a *app) report(ctx context.Context, args []string) error {
	id, rest, err := leadingID(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	dir := fs.String("out", a.core.Config.Report.DownloadDir, "directory to save the PDF into")
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}

	dc := a.core.Dashboard
	dl := dashboard.NewFileDownloader(*dir)
	if err := dc.RequestReport(ctx, id, dl); err != nil {
		return errors.New(dc.State().ReportError)
	}
	color.New(color.FgGreen).Fprintf(a.out, "Saved %s\n", dl.LastPath)
	return nil
}

func leadingID(args []string) (entity.DatasetID, []string, error) {
	if len(args) == 0 {
		return 0, nil, errUsage
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || n <= 0 {
		return 0, nil, fmt.Errorf("invalid dataset id %q", args[0])
	}
	return entity.DatasetID(n), args[1:], nil
}

// --- Events ---

// events follows everything dashboards publish until interrupted.
func (a *app) events(ctx context.Context) error {
	sub, err := pktNats.NewSubscriber(a.core.Config.Events.NatsURL)
	if err != nil {
		return err
	}
	defer sub.Close()

	typeColor := color.New(color.FgCyan, color.Bold)
	fmt.Fprintln(a.out, "Listening for events, Ctrl+C to stop")
	return sub.Tail(ctx, pktNats.AllEvents, func(_ context.Context, evt pkgEvents.Event) error {
		typeColor.Fprintf(a.out, "%-18s ", evt.EventType())
		fmt.Fprintf(a.out, "%s  %v\n", evt.Timestamp().Local().Format("15:04:05"), evt.Payload())
		return nil
	})
}
