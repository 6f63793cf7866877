package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/blockgate/blockgate/internal/config"
	"github.com/blockgate/blockgate/internal/events"
	"github.com/blockgate/blockgate/internal/protocol"
	"github.com/blockgate/blockgate/internal/transfer"
)

// envelope is one newline-delimited JSON message on either direction of
// the stdio bridge.
type envelope struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outbound is the stdout framing for engine messages.
type outbound struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload engine on a stdio JSON bridge",
		Long: `Runs the engine as a long-lived child process. Outbound engine
messages are written to stdout as newline-delimited JSON; inbound
replies and commands are read from stdin in the same framing. Logs go
to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootContext)
		},
	}
	cmd.Flags().BoolVar(&progress, "progress", false, "Render transfer progress bars on stderr")
	return cmd
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	bus := events.NewBus(0)
	eng := transfer.New(cfg, bus, logger)

	logger.Info().Msg("engine started, bridging on stdio")

	go writeOutbound(ctx, bus, os.Stdout)
	if progress {
		go renderProgress(ctx, bus)
	}

	return readInbound(ctx, eng, bus, os.Stdin)
}

// writeOutbound streams every bus message to w as one JSON line.
func writeOutbound(ctx context.Context, bus *events.Bus, w io.Writer) {
	msgs := bus.SubscribeAll()
	enc := json.NewEncoder(w)
	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if err := enc.Encode(outbound{Event: m.Name, Payload: m.Payload}); err != nil {
				logger.Errorf("failed to write outbound message: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// renderProgress draws a progress bar on stderr for the active transfer.
func renderProgress(ctx context.Context, bus *events.Bus) {
	msgs := bus.Subscribe(protocol.MsgTransferProgress)
	var bar *progressbar.ProgressBar
	var barID string
	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				return
			}
			tp, ok := m.Payload.(protocol.TransferProgress)
			if !ok {
				continue
			}
			if bar == nil || barID != tp.ID {
				bar = progressbar.NewOptions(100,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription(tp.Name),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
				barID = tp.ID
			}
			bar.Set(int(tp.Progress * 100))
			if tp.Progress >= 1 || tp.Status == "failed" {
				bar.Finish()
				bar = nil
			}
		case <-ctx.Done():
			return
		}
	}
}

// readInbound dispatches stdin messages to the engine until EOF or
// context cancellation. Malformed lines are logged and skipped; a broken
// inbound channel is fatal to the serve loop.
func readInbound(ctx context.Context, eng *transfer.Engine, bus *events.Bus, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			logger.Warnf("dropping malformed inbound line: %v", err)
			continue
		}
		if err := dispatch(eng, bus, env); err != nil {
			logger.Warnf("failed to handle %q: %v", env.Name, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("inbound channel failed: %w", err)
	}

	logger.Info().Msg("inbound channel closed, shutting down")
	return nil
}

func dispatch(eng *transfer.Engine, bus *events.Bus, env envelope) error {
	switch env.Name {
	case protocol.MsgUploadURLsReply:
		var p protocol.UploadURLsReply
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		eng.HandleUploadURLsResponse(p.ID, p.Response)

	case protocol.MsgUploadErrorReply:
		var p protocol.UploadErrorReply
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		eng.HandleUploadErrorResponse(p.ID, p.Error)

	case protocol.MsgFolderCreatedReply:
		var p protocol.FolderCreatedReply
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		eng.HandleFolderCreatedResponse(p.ID, p.Response)

	case protocol.MsgFolderErrorReply:
		var p protocol.FolderErrorReply
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		eng.HandleFolderErrorResponse(p.ID, p.Error)

	case protocol.MsgFinalizeReply:
		var p protocol.FinalizeReply
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		eng.FinalizeComplete(p.TransferID, p.FileID, p.ParentID, p.Success, p.Error)

	case protocol.MsgSelectFiles:
		var p protocol.SelectRequest
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		eng.SelectFiles(p.Paths, p.ShareID, p.ParentID)

	case protocol.MsgSelectFolders:
		var p protocol.SelectRequest
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		eng.SelectFolders(p.Paths, p.ShareID, p.ParentID)

	case protocol.MsgPauseTransfers:
		eng.Pause()

	case protocol.MsgResumeTransfers:
		var p protocol.ResumeRequest
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return err
			}
		}
		eng.Resume(p.ShareID)

	case protocol.MsgCancelTransfer:
		var p protocol.CancelRequest
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		eng.CancelTransfer(p.ID)

	case protocol.MsgCancelAll:
		eng.CancelAll()

	case protocol.MsgQueueStatus:
		bus.Publish(protocol.MsgQueueStatus, eng.Status())

	case protocol.MsgDetailedQueueStatus:
		bus.Publish(protocol.MsgDetailedQueueStatus, eng.DetailedStatus())

	case protocol.MsgHealthCheck:
		bus.Publish(protocol.MsgHealthCheck, eng.Health())

	case protocol.MsgCleanupStuck:
		bus.Publish(protocol.MsgCleanupStuck, eng.CleanupStuckTransfers())

	case protocol.MsgRepairPending:
		bus.Publish(protocol.MsgRepairPending, eng.RepairPendingFolders())

	default:
		return fmt.Errorf("unknown message name %q", env.Name)
	}
	return nil
}
