package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vimsicles/internal/config"
	"vimsicles/internal/processor"
	"vimsicles/internal/session"
	"vimsicles/internal/transport"
	"vimsicles/internal/ui"
	"vimsicles/pkg/utils"
)

// ReceiverOptions configures the receiver application behavior
type ReceiverOptions struct {
	Bind string // empty uses network.bind
	Port int    // 0 uses network.port
	Dir  string // empty uses ~/Downloads/<receive.namespace>
}

// ReceiverApp implements receiver application logic
type ReceiverApp struct {
	config      *config.Config
	logger      *zap.SugaredLogger
	peerService *transport.PeerService
	fileService *processor.FileService
	unpacker    session.Unpacker
	ui          ui.ProgressUI
}

// NewReceiverApp creates a new receiver application
func NewReceiverApp(
	cfg *config.Config,
	logger *zap.SugaredLogger,
	peerService *transport.PeerService,
	fileService *processor.FileService,
	unpacker session.Unpacker,
	ui ui.ProgressUI,
) *ReceiverApp {
	return &ReceiverApp{
		config:      cfg,
		logger:      logger,
		peerService: peerService,
		fileService: fileService,
		unpacker:    unpacker,
		ui:          ui,
	}
}

// Run starts the receiver application with the given options
func (r *ReceiverApp) Run(ctx context.Context, opts *ReceiverOptions) error {
	sessOpts, err := session.OptionsFromConfig(r.config)
	if err != nil {
		return fmt.Errorf("invalid transfer settings: %w", err)
	}

	dir := opts.Dir
	if dir == "" {
		dir = r.config.Receive.Dir
	}
	dest, err := utils.DownloadDir(dir, r.config.Receive.Namespace)
	if err != nil {
		return err
	}
	if err := r.fileService.EnsureDir(dest); err != nil {
		return err
	}

	bind := opts.Bind
	if bind == "" {
		bind = r.config.Network.Bind
	}
	r.ui.ShowMessage(fmt.Sprintf("Preparing to receive into: %s", dest))

	conn, err := r.peerService.ListenOnce(ctx, bind, opts.Port)
	if err != nil {
		return err
	}

	logger := r.logger.With("session_id", uuid.NewString(), "peer", conn.RemoteAddr().String())
	r.ui.Begin("incoming artifact", -1)
	sessOpts.Progress = r.ui.Advance
	result, err := session.NewReceiver(conn, dest, r.unpacker, sessOpts, logger).Receive(ctx)
	r.ui.Finish()
	logger.Debugw("Progress closed", "reported_bytes", r.ui.Transferred())
	if err != nil {
		r.ui.ShowTransferSummary(result.Outcome.String(), "")
		return fmt.Errorf("transfer failed: %w", err)
	}

	r.ui.ShowTransferSummary(result.Outcome.String(), result.Path)
	return nil
}
