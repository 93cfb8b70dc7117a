package widget

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"chemviz-dashboard/internal/dashboard"

	"github.com/fatih/color"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	labelColor = color.New(color.FgHiBlack)
	valueColor = color.New(color.FgGreen, color.Bold)
	errorColor = color.New(color.FgRed)
	okColor    = color.New(color.FgGreen)
	hintColor  = color.New(color.FgYellow)
)

// PrintDashboard writes the dashboard screen for a terminal.
func PrintDashboard(w io.Writer, v DashboardView) {
	switch {
	case v.Loading:
		hintColor.Fprintln(w, "Loading...")
		return
	case v.Error != "":
		errorColor.Fprintln(w, v.Error)
		return
	case v.Dataset == nil:
		hintColor.Fprintln(w, v.EmptyMessage)
		return
	}
	PrintDataset(w, v.Dataset)
}

// PrintDataset writes cards, distribution, grouped averages and the table.
func PrintDataset(w io.Writer, d *DatasetView) {
	titleColor.Fprintf(w, "%s  (#%d, %s)\n\n", d.Name, d.Id, d.UploadedAt)

	for _, c := range d.Cards {
		labelColor.Fprintf(w, "%-16s ", c.Label)
		valueColor.Fprint(w, c.Value)
		if c.Unit != "" {
			fmt.Fprint(w, " "+c.Unit)
		}
		fmt.Fprintln(w)
	}

	titleColor.Fprintln(w, "\nType Distribution")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, tc := range d.Distribution {
		fmt.Fprintf(tw, "  %s\t%d\n", tc.Type, tc.Count)
	}
	tw.Flush()

	titleColor.Fprintln(w, "\nAvg Metrics by Equipment Type")
	PrintAverages(w, d.Averages)

	titleColor.Fprintln(w, "\nEquipment")
	PrintTable(w, d.Headers, d.Rows)
}

func PrintAverages(w io.Writer, averages []dashboard.TypeAverage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Type\tCount\tFlowrate\tPressure\tTemperature\t")
	for _, a := range averages {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t\n", a.EquipmentType, a.Count, a.Flowrate, a.Pressure, a.Temperature)
	}
	tw.Flush()
}

func PrintTable(w io.Writer, headers []Header, rows []Row) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	titles := make([]string, 0, len(headers)+1)
	titles = append(titles, "#")
	for _, h := range headers {
		t := h.Title
		if h.Arrow != "" {
			t += " " + h.Arrow
		}
		titles = append(titles, t)
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))

	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Number, r.EquipmentName, r.EquipmentType, r.Flowrate, r.Pressure, r.Temperature)
	}
	tw.Flush()
}

// PrintHistory lists past uploads, marking the selected one.
func PrintHistory(w io.Writer, v HistoryView) {
	if v.Error != "" {
		errorColor.Fprintln(w, v.Error)
	}
	if v.EmptyMessage != "" {
		hintColor.Fprintln(w, v.EmptyMessage)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tUploaded\tRecords\tTypes")
	for _, it := range v.Items {
		marker := ""
		if it.Selected {
			marker = " *"
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%s\t%d records\t%d types\n", it.Id, marker, it.Name, it.UploadedAt, it.Records, it.Types)
	}
	tw.Flush()

	if v.ReportError != "" {
		errorColor.Fprintln(w, v.ReportError)
	}
}

// PrintUpload reports the outcome of an upload.
func PrintUpload(w io.Writer, u dashboard.UploadState) {
	switch u.Status {
	case dashboard.UploadSuccess:
		okColor.Fprintf(w, "Uploaded %s\n", u.FileName)
	case dashboard.UploadError:
		errorColor.Fprintln(w, u.Error)
	case dashboard.UploadUploading:
		hintColor.Fprintf(w, "Uploading %s...\n", u.FileName)
	}
}
