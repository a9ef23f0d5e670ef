package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vimsicles/internal/app"
	"vimsicles/internal/ui"
)

type SendFlags struct {
	Host string
	Port int
}

var sendFlags SendFlags

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send --to HOST PATH...",
	Short: "Send a file or folder to a waiting receiver",
	Long: `Send a file or folder to a receiver. This will:

1. Pack folders (or several paths) into a single archive
2. Hash the artifact and connect to the receiver
3. Send the artifact header and wait for the receiver's acknowledgment
4. Stream the artifact and close the connection

A single regular file is sent as is.`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateSendFlags(&sendFlags)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSenderApp(&sendFlags, args); err != nil {
			logger.Fatalf("Sender failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendFlags.Host, "to", "t", "", "Receiver host name or address (required)")
	sendCmd.Flags().IntVarP(&sendFlags.Port, "port", "p", 0, "Receiver port (default network.port)")

	sendCmd.MarkFlagRequired("to")
}

// validateSendFlags validates the send command flags
func validateSendFlags(flags *SendFlags) error {
	if flags.Host == "" {
		return fmt.Errorf("receiver host is required")
	}
	if flags.Port < 0 || flags.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// runSenderApp creates and runs the sender application
func runSenderApp(flags *SendFlags, paths []string) error {
	ctx := createContext()
	peerService, fileService, _ := createServices()

	opts := &app.SenderOptions{
		Host:  flags.Host,
		Port:  flags.Port,
		Paths: paths,
	}

	senderApp := app.NewSenderApp(cfg, logger, peerService, fileService, ui.NewConsoleUI("Sending", cfg.UI.Progress))
	return senderApp.Run(ctx, opts)
}
