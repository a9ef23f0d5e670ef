package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"vimsicles/internal/archive"
	"vimsicles/internal/config"
	"vimsicles/internal/logging"
	"vimsicles/internal/processor"
	"vimsicles/internal/transport"
)

var (
	cfg     *config.Config
	logger  *zap.SugaredLogger
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vimsicles",
	Short: "vimsicles - verified point-to-point file transfer",
	Long: `vimsicles moves a single file or folder to another machine over a direct
TCP connection and verifies on arrival that every byte matches what was sent.

Usage:
  Receive:             vimsicles receive
  Send a file:         vimsicles send --to 192.168.1.20 report.pdf
  Send a folder:       vimsicles send --to 192.168.1.20 ./photos

Received files land in ~/Downloads/vimsicles unless --dir is given. Folders are
sent as a compressed archive and unpacked by the receiver once verified.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize viper configuration
		initConfig()

		var err error
		cfg, err = config.Load(viper.GetViper())
		if err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}

		logger, err = logging.New(cfg.Log)
		if err != nil {
			log.Fatalf("Invalid log configuration: %v", err)
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Infow("Using config file", "path", used)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vimsicles.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Set up viper environment variable support
	viper.SetEnvPrefix("VIMSICLES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}

		// Search config in home directory with name ".vimsicles" (without extension)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".vimsicles")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatalf("Failed to read config file: %v", err)
		}
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// createContext creates a context that cancels on interrupt signals
func createContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	return ctx
}

// createServices creates and wires up the services shared by both roles
func createServices() (*transport.PeerService, *processor.FileService, *archive.Extractor) {
	compression, err := archive.ParseCompression(cfg.Archive.Compression)
	if err != nil {
		logger.Fatalf("Invalid archive compression: %v", err)
	}

	peerService := transport.NewPeerService(cfg, logger)
	fileService := processor.NewFileService(archive.NewBuilder(compression, logger), logger)
	extractor := archive.NewExtractor(logger)

	return peerService, fileService, extractor
}
