package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagTitle  string
	flagInvite []string
)

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a meeting and print its room code",
	Long: `Create a meeting on the server. The printed six-character room code is
what other participants join with.

Examples:
  meet create --title "Weekly sync" --name Alice --email alice@example.com
  meet create --title Standup --invite bob@example.com --invite carol@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagTitle == "" {
			return fmt.Errorf("a meeting title is required (--title)")
		}
		if flagName == "" {
			return fmt.Errorf("a display name is required (--name)")
		}

		api := NewAPI(flagServer)
		meeting, err := api.CreateMeeting(flagTitle, flagName, flagEmail, flagInvite)
		if err != nil {
			return err
		}

		fmt.Printf("Meeting created: %s\n", meeting.Title)
		fmt.Printf("Room code:       %s\n", meeting.RoomCode)
		fmt.Printf("Join with:       meet join %s --name <you>\n", meeting.RoomCode)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&flagTitle, "title", "", "meeting title")
	createCmd.Flags().StringArrayVar(&flagInvite, "invite", nil, "restrict joining to these emails (repeatable)")
	rootCmd.AddCommand(createCmd)
}
