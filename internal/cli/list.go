package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List active meetings you can join",
	RunE: func(cmd *cobra.Command, args []string) error {
		api := NewAPI(flagServer)
		meetings, err := api.ListMeetings(flagEmail)
		if err != nil {
			return err
		}
		if len(meetings) == 0 {
			fmt.Println("No active meetings.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tTITLE\tHOST\tSTARTED")
		for _, m := range meetings {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.RoomCode, m.Title, m.HostName, m.CreatedAt.Local().Format("Jan 2 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
