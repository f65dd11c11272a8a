package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/fieldops/internal/clock"
	"github.com/xiaot623/gogo/fieldops/internal/domain"
	"github.com/xiaot623/gogo/fieldops/internal/service"
	"github.com/xiaot623/gogo/fieldops/internal/worktime"
)

// Colors
const (
	colorAccent  = "#7D56F4"
	colorMuted   = "#6C6C6C"
	colorRunning = "#04B575"
	colorPaused  = "#F2C94C"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	totalStyle  = lipgloss.NewStyle().Bold(true)
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the work sessions of an account",
	Long: `Print the work sessions of an account with paused and net time.

Examples:
  fieldops report --account 1
  fieldops report --account 1 --from 2025-03-01 --to 2025-03-31
  fieldops report --account 1 --from "last monday" --limit 10`,
	Args: cobra.NoArgs,
	RunE: withApp(runReport),
}

func init() {
	reportCmd.Flags().Int64("account", 0, "account id")
	reportCmd.Flags().String("from", "", "earliest start date, inclusive")
	reportCmd.Flags().String("to", "", "latest start date, inclusive")
	reportCmd.Flags().Int("limit", 0, "show only the most recent sessions")
	reportCmd.MarkFlagRequired("account")
}

func runReport(cmd *cobra.Command, args []string, rt *app) error {
	accountID, _ := cmd.Flags().GetInt64("account")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	limit, _ := cmd.Flags().GetInt("limit")

	limitRaw := ""
	if limit > 0 {
		limitRaw = strconv.Itoa(limit)
	}

	svc := service.New(rt.store, clock.Real(), nil, nil)
	rng, err := svc.ParseWorkSessionRange(from, to, limitRaw)
	if err != nil {
		return err
	}
	views, err := svc.ListWorkSessionsByAccount(cmd.Context(), strconv.FormatInt(accountID, 10), rng)
	if err != nil {
		return err
	}

	renderReport(cmd.OutOrStdout(), accountID, views)
	return nil
}

// renderReport writes a session table followed by the summed durations.
func renderReport(w io.Writer, accountID int64, views []domain.WorkSessionView) {
	title := fmt.Sprintf("Work sessions for account #%d", accountID)
	if len(views) > 0 && views[0].Account != nil {
		a := views[0].Account
		title = fmt.Sprintf("Work sessions for %s %s (#%d)", a.FirstName, a.LastName, a.ID)
	}
	fmt.Fprintln(w, titleStyle.Render(title))

	if len(views) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No sessions found"))
		return
	}

	var totalMs, pauseMs, netMs int64
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		totalMs += v.Durations.TotalMs
		pauseMs += v.Durations.PauseMs
		netMs += v.Durations.NetMs

		end := "-"
		if v.EndTime != nil {
			end = v.EndTime.Local().Format("2006-01-02 15:04")
		}
		mission := "-"
		if v.MissionID != nil {
			mission = "#" + strconv.FormatInt(*v.MissionID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(v.ID, 10),
			v.StartTime.Local().Format("2006-01-02 15:04"),
			end,
			mission,
			string(v.Status),
			strconv.Itoa(len(v.Pauses)),
			v.Durations.TotalDuration,
			v.Durations.TotalPause,
			v.Durations.NetDuration,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))).
		Headers("ID", "START", "END", "MISSION", "STATUS", "PAUSES", "TOTAL", "PAUSED", "NET").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 4 && row >= 0 && row < len(rows) {
				switch domain.SessionStatus(rows[row][4]) {
				case domain.SessionStatusStarted:
					return cellStyle.Foreground(lipgloss.Color(colorRunning))
				case domain.SessionStatusPaused:
					return cellStyle.Foreground(lipgloss.Color(colorPaused))
				}
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.String())

	summary := []string{
		fmt.Sprintf("%d sessions", len(views)),
		"total " + worktime.FormatClock(totalMs),
		"paused " + worktime.FormatClock(pauseMs),
		"net " + worktime.FormatClock(netMs),
	}
	fmt.Fprintln(w, totalStyle.Render(strings.Join(summary, "  ·  ")))
}
