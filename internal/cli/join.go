package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kumarharshit0413/Nexus/internal/config"
	"github.com/kumarharshit0413/Nexus/internal/logging"
	"github.com/kumarharshit0413/Nexus/internal/session"
	"github.com/kumarharshit0413/Nexus/internal/ui"
)

var (
	flagName      string
	flagDomain    string
	flagServerURL string
	flagSTUN      string
	flagTURN      string
	flagTURNUser  string
	flagTURNPass  string
	flagSummarize bool
)

var joinCmd = &cobra.Command{
	Use:     "join [room-id]",
	Aliases: []string{"j"},
	Short:   "Join a meeting room (or start a new one)",
	Long: `Join the given meeting room, or start a fresh room when no id is given.

Examples:
  nexus join amber-falcon-harbor-42 --name Alice
  nexus join --name Bob
  nexus join standup --domain meet.example.com --summarize`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := ""
		if len(args) == 1 {
			roomID = args[0]
		}
		if roomID == "" {
			roomID = generateRoomID()
		}
		return joinRoom(roomID)
	},
}

func joinRoom(roomID string) error {
	// Keep log noise off the meeting view.
	logging.InitWriter(os.Stderr)

	cfg, err := config.Load(config.Options{
		Domain:     flagDomain,
		ServerURL:  flagServerURL,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
	})
	if err != nil {
		return err
	}

	displayName := flagName
	if displayName == "" {
		displayName = "Guest"
	}

	capture, err := session.NewCapture()
	if err != nil {
		// Media failure is local and recoverable elsewhere, but the
		// terminal client has nothing to offer without it.
		return err
	}
	defer capture.Close()

	stopSpinner := ui.RunConnectionSpinner("Connecting to " + cfg.Domain + "...")
	wire := session.NewWire(cfg.WebSocketURL)
	if err := wire.Connect(); err != nil {
		stopSpinner()
		// Cannot establish the transport session: fatal for joining,
		// the user stays pre-join.
		return session.NewError("connect to server", err)
	}
	stopSpinner()

	fmt.Println(ui.RoomInfoView(roomID, cfg.GetRoomLink(roomID)))

	sess := session.New(wire, capture, session.NewPCFactory(cfg), roomID, displayName)
	defer sess.Close()

	go sess.Run()

	model := ui.NewMeetingModel(sess, capture)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return err
	}

	if poll := model.Poll(); poll != nil {
		fmt.Println(ui.PollResultsView(poll))
	}

	if flagSummarize {
		printSummary(cfg, model.History())
	}

	return nil
}

// printSummary asks the server's summarize endpoint for a recap of the
// chat. Best effort: a failure is reported, never fatal.
func printSummary(cfg *config.Config, history []session.ChatEvent) {
	if len(history) == 0 {
		ui.PrintWarning("No chat to summarize.")
		return
	}

	type entry struct {
		SenderID    string `json:"senderId"`
		DisplayName string `json:"displayName"`
		Message     string `json:"message"`
	}
	entries := make([]entry, len(history))
	for i, h := range history {
		entries[i] = entry{SenderID: h.SenderID, DisplayName: h.DisplayName, Message: h.Message}
	}
	body, err := json.Marshal(map[string]any{"chatHistory": entries})
	if err != nil {
		ui.PrintWarning("Could not build summary request.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	url := fmt.Sprintf("https://%s/api/summarize", cfg.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		ui.PrintWarning("Could not build summary request.")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ui.PrintWarning("Summary unavailable: " + err.Error())
		return
	}
	defer resp.Body.Close()

	var out struct {
		Summary string `json:"summary"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Summary == "" {
		ui.PrintWarning("Summary unavailable.")
		return
	}

	fmt.Println(ui.TitleStyle.Render("Meeting summary"))
	fmt.Println(out.Summary)
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name shown to other participants")
	joinCmd.Flags().StringVarP(&flagDomain, "domain", "d", "", "Custom server domain")
	joinCmd.Flags().StringVar(&flagServerURL, "server-url", "", "Full websocket URL (overrides --domain)")
	joinCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	joinCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	joinCmd.Flags().BoolVar(&flagSummarize, "summarize", false, "Summarize the chat when leaving")
}
