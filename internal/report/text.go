package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
	"github.com/go-tangra/go-tangra-diskhealth/internal/source"
)

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorGray   = lipgloss.Color("#6272A4")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle  = lipgloss.NewStyle().Foreground(colorGray)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

// Render formats a report for a terminal.
func Render(r *Report) string {
	var b strings.Builder

	title := "Disk health"
	if r.Host.Hostname != "" {
		title += " · " + r.Host.Hostname
	}
	b.WriteString(titleStyle.Render(title))
	if hw := strings.TrimSpace(r.Host.Manufacturer + " " + r.Host.Product); hw != "" {
		b.WriteString(" " + labelStyle.Render("("+hw+")"))
	}
	b.WriteString("\n")
	if !r.CollectedAt.IsZero() {
		b.WriteString(labelStyle.Render("Collected ") + r.CollectedAt.Format(time.RFC3339) + "\n")
	}
	for _, v := range r.Volumes {
		line := labelStyle.Render("Volume "+v.Volume) + " "
		switch {
		case v.Error != "":
			line += warnStyle.Render(v.Error)
		case len(v.Disks) == 0:
			line += "no disks"
		default:
			line += "disk " + joinInts(v.Disks)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if len(r.Records) == 0 {
		b.WriteString(warnStyle.Render("No storage devices found.") + "\n")
	} else {
		b.WriteString(recordTable(r.Records) + "\n")
	}

	if len(r.Sources) > 0 {
		b.WriteString("\n" + titleStyle.Render("Sources") + "\n")
		for _, s := range r.Sources {
			b.WriteString(sourceLine(s) + "\n")
		}
	}

	b.WriteString("\n" + summaryLine(r.Summary) + "\n")
	return b.String()
}

func recordTable(records []*health.Record) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		target := ""
		if rec.IsTargetVolume {
			target = "*"
		}
		disk := "?"
		if rec.DiskNumber != nil {
			disk = strconv.Itoa(*rec.DiskNumber)
		}
		size := ""
		if rec.SizeBytes > 0 {
			size = humanize.Bytes(rec.SizeBytes)
		}
		hs := health.HealthUnknown.String()
		if rec.HealthStatus != nil {
			hs = rec.HealthStatus.String()
		}
		rows = append(rows, []string{
			target,
			disk,
			rec.DisplayName(),
			rec.SerialNumber,
			size,
			hs,
			rec.PredictFailure.String(),
			strings.Join(rec.OperationalStatus.Values(), ", "),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(labelStyle).
		Headers("", "Disk", "Name", "Serial", "Size", "Health", "Prediction", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(records) {
				return cellStyle
			}
			rec := records[row]
			switch col {
			case 5:
				return healthStyle(rec.HealthStatus)
			case 6:
				return predictStyle(rec.PredictFailure)
			}
			return cellStyle
		}).
		String()
}

func healthStyle(s *health.HealthStatus) lipgloss.Style {
	if s == nil {
		return cellStyle
	}
	switch {
	case *s >= health.HealthUnhealthy:
		return cellStyle.Inherit(critStyle)
	case *s == health.HealthWarning:
		return cellStyle.Inherit(warnStyle)
	case *s == health.HealthHealthy:
		return cellStyle.Inherit(okStyle)
	}
	return cellStyle
}

func predictStyle(p health.PredictFailure) lipgloss.Style {
	switch p {
	case health.PredictAtRisk:
		return cellStyle.Inherit(critStyle)
	case health.PredictHealthy:
		return cellStyle.Inherit(okStyle)
	}
	return cellStyle
}

func sourceLine(s source.Result) string {
	name := s.Source
	if s.Provider != "" && s.Provider != s.Source {
		name += " (" + s.Provider + ")"
	}
	var status string
	switch s.Status {
	case source.StatusOK:
		status = okStyle.Render(string(s.Status))
	case source.StatusUnavailable:
		status = labelStyle.Render(string(s.Status))
	default:
		status = warnStyle.Render(string(s.Status))
	}
	line := fmt.Sprintf("  %-40s %s  %s  %s", name, status,
		humanize.Comma(int64(s.Observations))+" observations",
		s.Duration.Round(time.Millisecond))
	if s.Error != "" && s.Status != source.StatusOK {
		line += "  " + labelStyle.Render(s.Error)
	}
	return line
}

func summaryLine(s Summary) string {
	devices := fmt.Sprintf("%d device", s.Total)
	if s.Total != 1 {
		devices += "s"
	}
	switch {
	case s.TargetAtRisk:
		return critStyle.Render(fmt.Sprintf("%s, %d at risk, including the target volume", devices, s.AtRisk))
	case s.AtRisk > 0:
		return warnStyle.Render(fmt.Sprintf("%s, %d at risk", devices, s.AtRisk))
	}
	return okStyle.Render(devices + ", none at risk")
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
