package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vimsicles/internal/app"
	"vimsicles/internal/ui"
)

type ReceiveFlags struct {
	Bind string
	Port int
	Dir  string
}

var receiveFlags ReceiveFlags

// receiveCmd represents the receive command
var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Wait for one incoming file or folder",
	Long: `Receive exactly one artifact from a sender. This will:

1. Resolve the destination directory (~/Downloads/vimsicles by default)
2. Listen for a single connection
3. Read the artifact header and acknowledge it
4. Receive the artifact until the sender closes the connection
5. Verify its hash, then store the file or unpack the folder

Artifacts that fail verification are deleted.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateReceiveFlags(&receiveFlags)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runReceiverApp(&receiveFlags); err != nil {
			logger.Fatalf("Receiver failed: %v", err)
		}
	},
}

// validateReceiveFlags validates the receive command flags
func validateReceiveFlags(flags *ReceiveFlags) error {
	if flags.Port < 0 || flags.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().StringVarP(&receiveFlags.Bind, "bind", "b", "", "Address to listen on (default network.bind)")
	receiveCmd.Flags().IntVarP(&receiveFlags.Port, "port", "p", 0, "Port to listen on (default network.port)")
	receiveCmd.Flags().StringVarP(&receiveFlags.Dir, "dir", "d", "", "Directory to store received artifacts")

	// Bind flags to viper for environment variable support
	viper.BindPFlag("receive.dir", receiveCmd.Flags().Lookup("dir"))
}

// runReceiverApp creates and runs the receiver application
func runReceiverApp(flags *ReceiveFlags) error {
	ctx := createContext()
	peerService, fileService, extractor := createServices()

	opts := &app.ReceiverOptions{
		Bind: flags.Bind,
		Port: flags.Port,
		Dir:  flags.Dir,
	}

	receiverApp := app.NewReceiverApp(cfg, logger, peerService, fileService, extractor, ui.NewConsoleUI("Receiving", cfg.UI.Progress))
	return receiverApp.Run(ctx, opts)
}
