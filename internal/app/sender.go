package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vimsicles/internal/config"
	"vimsicles/internal/processor"
	"vimsicles/internal/session"
	"vimsicles/internal/transport"
	"vimsicles/internal/ui"
)

// SenderOptions configures the sender application behavior
type SenderOptions struct {
	Host  string   // Required: receiver host
	Port  int      // 0 uses network.port
	Paths []string // Required: files or directories to send
}

// SenderApp implements sender application logic
type SenderApp struct {
	config      *config.Config
	logger      *zap.SugaredLogger
	peerService *transport.PeerService
	fileService *processor.FileService
	ui          ui.ProgressUI
}

// NewSenderApp creates a new sender application
func NewSenderApp(
	cfg *config.Config,
	logger *zap.SugaredLogger,
	peerService *transport.PeerService,
	fileService *processor.FileService,
	ui ui.ProgressUI,
) *SenderApp {
	return &SenderApp{
		config:      cfg,
		logger:      logger,
		peerService: peerService,
		fileService: fileService,
		ui:          ui,
	}
}

// Run starts the sender application with the given options
func (s *SenderApp) Run(ctx context.Context, opts *SenderOptions) error {
	if opts.Host == "" {
		return errors.New("receiver host is required")
	}
	if len(opts.Paths) == 0 {
		return errors.New("at least one path is required")
	}

	sessOpts, err := session.OptionsFromConfig(s.config)
	if err != nil {
		return fmt.Errorf("invalid transfer settings: %w", err)
	}

	prepared, err := s.fileService.Prepare(opts.Paths)
	if err != nil {
		return fmt.Errorf("failed to prepare artifact: %w", err)
	}
	defer func() {
		if err := prepared.Cleanup(); err != nil {
			s.logger.Warnw("Failed to clean up", "error", err)
		}
	}()

	logger := s.logger.With("session_id", uuid.NewString())
	s.ui.ShowMessage(fmt.Sprintf("Preparing to send %s (%s)", prepared.Artifact.Name, s.fileService.FormatFileSize(prepared.Size)))

	conn, err := s.peerService.Dial(ctx, opts.Host, opts.Port)
	if err != nil {
		return err
	}

	s.ui.Begin(prepared.Artifact.Name, prepared.Size)
	sessOpts.Progress = s.ui.Advance
	result, err := session.NewSender(conn, sessOpts, logger).Send(ctx, prepared.Artifact)
	s.ui.Finish()
	logger.Debugw("Progress closed", "reported_bytes", s.ui.Transferred())
	if err != nil {
		s.ui.ShowTransferSummary(result.Outcome.String(), "")
		return fmt.Errorf("transfer failed: %w", err)
	}

	// The receiver sends no verdict; success here means every byte was sent.
	s.ui.ShowTransferSummary("sent", "")
	return nil
}
