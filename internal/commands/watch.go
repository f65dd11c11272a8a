package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow work session events from a running server",
	Long: `Follow work session events from a running server.

Examples:
  fieldops watch
  fieldops watch --account 3 --addr ws://fieldops.internal:8080`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("addr", "ws://localhost:8080", "server address")
	watchCmd.Flags().Int64("account", 0, "only show events of this account")
}

// feedURL builds the live feed URL for addr.
func feedURL(addr string, accountID int64) (string, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/work-sessions"
	if accountID > 0 {
		u.RawQuery = url.Values{"account_id": {strconv.FormatInt(accountID, 10)}}.Encode()
	}
	return u.String(), nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	accountID, _ := cmd.Flags().GetInt64("account")

	target, err := feedURL(addr, accountID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connecting to %s...\n", target)

	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	fmt.Fprintln(out, "Connected. Press Ctrl+C to stop.")

	done := make(chan error, 1)
	go func() {
		done <- readEvents(conn, out)
	}()

	// Handle Ctrl+C
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	select {
	case err := <-done:
		return err
	case <-interrupt:
		fmt.Fprintln(out, "\nInterrupted")
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return nil
	}
}

// readEvents prints events until the server closes the connection.
func readEvents(conn *websocket.Conn, out io.Writer) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var event domain.SessionEvent
		if err := json.Unmarshal(data, &event); err != nil {
			fmt.Fprintf(out, "unreadable event: %s\n", data)
			continue
		}
		fmt.Fprintln(out, formatEvent(event))
	}
}

func formatEvent(e domain.SessionEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-28s session=%d account=%d status=%s",
		time.UnixMilli(e.Ts).Local().Format("15:04:05"), e.Type, e.SessionID, e.AccountID, e.Status)
	if e.MissionID != nil {
		fmt.Fprintf(&b, " mission=%d", *e.MissionID)
	}
	if e.PauseID != 0 {
		fmt.Fprintf(&b, " pause=%d", e.PauseID)
	}
	return b.String()
}
