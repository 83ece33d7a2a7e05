package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/typeless/meet/internal/domain"
	"github.com/typeless/meet/internal/rtc"
	"github.com/typeless/meet/internal/session"
	"github.com/typeless/meet/internal/wire"
)

var flagMic bool

var joinCmd = &cobra.Command{
	Use:     "join CODE",
	Aliases: []string{"j"},
	Short:   "Join a meeting by room code",
	Long: `Join a meeting. Typed text becomes live captions after a short pause;
lines starting with "/" are commands:

  /chat <text>   send a chat message immediately
  /who           show the participant list
  /mic on|off    toggle the microphone
  /mute on|off   toggle the speaker
  /stats         show received audio packets per participant
  /end           end the meeting for everyone (prints the summary)
  /leave         leave without ending the meeting`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinMeeting(args[0])
	},
}

// deferredSignaller breaks the setup cycle between the transport and the
// room channel: the endpoint is built first, the channel exists only after
// the join succeeds, and no signal is sent before then.
type deferredSignaller struct {
	channel *session.Channel
}

func (d *deferredSignaller) SendSignal(sig wire.Signal) error {
	if d.channel == nil {
		return fmt.Errorf("room channel not connected yet")
	}
	return d.channel.SendSignal(sig)
}

func joinMeeting(rawCode string) error {
	code, err := domain.ParseRoomCode(rawCode)
	if err != nil {
		return err
	}
	if flagName == "" {
		return fmt.Errorf("a display name is required (--name)")
	}
	user, err := domain.NewUser(flagName, flagEmail)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sig := &deferredSignaller{}
	endpoint := rtc.NewEndpoint(rtc.DefaultConfig(), sig)
	if flagMic {
		if err := endpoint.EnableMic(); err != nil {
			return fmt.Errorf("enable microphone: %w", err)
		}
	}
	player := rtc.NewPlayer()

	done := make(chan bool, 1)
	sess, err := session.Join(ctx, session.Options{
		ServerURL: flagServer,
		User:      user,
		Transport: endpoint,
		Sink:      player,
		OnRoster:  printRoster,
		OnEntry:   printEntry,
		OnNavigate: func(withSummary bool) {
			select {
			case done <- withSummary:
			default:
			}
		},
	}, code)
	if err != nil {
		return err
	}
	sig.channel = sess.Signaller()

	fmt.Printf("Joined %q as %s (room %s)\n", sess.Ctx.Title, user.Name, sess.Ctx.RoomCode)
	if err := sess.Announce(); err != nil {
		return fmt.Errorf("announce: %w", err)
	}

	go readInput(sess, endpoint, player)

	var withSummary bool
	select {
	case withSummary = <-done:
	case <-ctx.Done():
		sess.Lifecycle.Leave()
		return nil
	}

	if withSummary {
		printSummary(string(sess.Ctx.MeetingID))
	}
	return nil
}

func readInput(sess *session.Session, endpoint *rtc.Endpoint, player *rtc.Player) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			// Typed text flows through the caption debouncer like speech.
			sess.Relay.Input(line)
			continue
		}

		cmd, rest, _ := strings.Cut(line[1:], " ")
		switch cmd {
		case "chat":
			if err := sess.Relay.Submit(rest, domain.KindChat); err != nil {
				fmt.Println("!", err)
			}
		case "who":
			printRoster(sess.Presence.Snapshot())
		case "mic":
			endpoint.SetMicEnabled(rest != "off")
			fmt.Println("* microphone", onOff(rest != "off"))
		case "mute":
			player.SetMuted(rest != "off")
			fmt.Println("* speaker muted:", player.Muted())
		case "stats":
			printStats(sess.Presence.Snapshot(), player)
		case "end":
			sess.Lifecycle.End(true)
			return
		case "leave":
			sess.Lifecycle.Leave()
			return
		default:
			fmt.Println("! unknown command:", cmd)
		}
	}
}

func printRoster(roster []domain.Participant) {
	names := make([]string, 0, len(roster))
	for _, p := range roster {
		name := p.Name
		if p.Self {
			name += " (you)"
		}
		names = append(names, name)
	}
	fmt.Printf("* participants (%d): %s\n", len(roster), strings.Join(names, ", "))
}

func printStats(roster []domain.Participant, player *rtc.Player) {
	for _, p := range roster {
		if p.Self {
			continue
		}
		fmt.Printf("* %s: %d audio packets\n", p.Name, player.PacketCount(p.Peer))
	}
}

func printEntry(e domain.Entry) {
	marker := ""
	if e.Kind == domain.KindChat {
		marker = " [chat]"
	}
	fmt.Printf("[%s]%s %s: %s\n", e.Timestamp.Local().Format("15:04"), marker, e.Speaker, e.Content)
}

func printSummary(meetingID string) {
	api := NewAPI(flagServer)
	fmt.Println("Generating summary...")
	summary, actionItems, err := api.GenerateSummary(meetingID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "summary unavailable:", err)
		return
	}
	fmt.Println("\n--- Summary ---")
	fmt.Println(summary)
	if actionItems != "" {
		fmt.Println("\n--- Action items ---")
		fmt.Println(actionItems)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func init() {
	joinCmd.Flags().BoolVar(&flagMic, "mic", true, "start with the microphone enabled")
	rootCmd.AddCommand(joinCmd)
}
