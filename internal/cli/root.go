package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahmedasif11/let-meet-sub000/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "letmeet",
	Short:   "Join LetMeet video rooms from the terminal",
	Long:    `LetMeet is a mesh peer-to-peer video meeting client. It connects to the signaling relay, requests admission to a room and negotiates a direct media connection with every other participant. Rooms are approved by their admin: the first participant to open a room id becomes its admin and admits or rejects everyone who follows.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
