package updater

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voltra/chargerfw/internal/config"
	"github.com/voltra/chargerfw/internal/device"
	"github.com/voltra/chargerfw/internal/firmware"
)

// Report summarizes a completed update.
type Report struct {
	RunID     string
	Before    *device.Identity
	After     *device.Identity // nil when the final info fetch failed
	MainBytes int
	RearBytes int
	Duration  time.Duration
}

// Updater runs the update sequence against one device.
type Updater struct {
	client *device.Client
	cfg    config.UpdateConfig
	logger *zap.Logger

	// Sleeper performs the fixed waits; RealSleeper when nil
	Sleeper Sleeper
	// OnStep, if set, receives every step transition
	OnStep StepFunc
}

// New creates an updater for the device behind client
func New(client *device.Client, cfg config.UpdateConfig, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		Sleeper: RealSleeper,
	}
}

type run struct {
	u      *Updater
	logger *zap.Logger
	index  int
}

// Run performs the full update with the images in bundle.
//
// Any failure before the final info fetch aborts the run and is returned as
// a *StepError. A failing final fetch is only logged.
func (u *Updater) Run(ctx context.Context, bundle *firmware.Bundle) (*Report, error) {
	started := time.Now()
	id := uuid.NewString()
	r := &run{
		u:      u,
		logger: u.logger.With(zap.String("run_id", id)),
	}
	report := &Report{RunID: id}

	r.logger.Info("Starting firmware update",
		zap.String("device_ip", u.client.IP),
		zap.String("main_firmware", bundle.MainPath),
		zap.String("rear_firmware", bundle.RearPath),
	)

	// 1. Current device info
	r.begin(StepFetchInfo)
	before, err := u.client.FetchInfo(ctx)
	if err != nil {
		return nil, r.fail(&StepError{Step: "Device info fetch", Err: err})
	}
	report.Before = before
	r.complete(fmt.Sprintf("%s, firmware %s", before.DeviceName, before.FirmwareVersion))
	r.logger.Info("Current device firmware",
		zap.String("device_name", before.DeviceName),
		zap.String("firmware", before.FirmwareVersion),
		zap.String("serial", before.SerialNumber),
	)

	// 2-5. Main board
	if report.MainBytes, err = r.upload(ctx, bundle, device.BoardMain); err != nil {
		return nil, err
	}
	r.wait(StepWaitMain, u.cfg.MainProcessingWait)
	if err := r.reboot(ctx, device.BoardMain); err != nil {
		return nil, err
	}
	r.wait(StepWaitSignal, u.cfg.RebootSignalWait)

	// 6-9. Rear board
	if report.RearBytes, err = r.upload(ctx, bundle, device.BoardRear); err != nil {
		return nil, err
	}
	r.wait(StepWaitRear, u.cfg.RearProcessingWait)
	if err := r.reboot(ctx, device.BoardRear); err != nil {
		return nil, err
	}
	r.wait(StepWaitRearBoot, u.cfg.RearRebootWait)

	// 10. Best effort: the device may still be restarting
	r.begin(StepFetchNewInfo)
	after, err := u.client.FetchInfo(ctx)
	if err != nil {
		r.logger.Warn("Could not read device info after update", zap.Error(err))
		r.report(StepSkipped, "device not answering yet", err)
	} else {
		report.After = after
		r.complete("firmware " + after.FirmwareVersion)
		r.logger.Info("Updated device firmware",
			zap.String("firmware_before", before.FirmwareVersion),
			zap.String("firmware_after", after.FirmwareVersion),
		)
	}

	report.Duration = time.Since(started)
	r.logger.Info("Firmware update complete", zap.Duration("duration", report.Duration))
	return report, nil
}

func (r *run) upload(ctx context.Context, bundle *firmware.Bundle, board device.Board) (int, error) {
	name := StepUploadMain
	if board == device.BoardRear {
		name = StepUploadRear
	}
	step := board.Title() + " firmware upload"

	r.begin(name)
	data, err := bundle.Read(string(board))
	if err != nil {
		return 0, r.fail(&StepError{Step: step, Err: err})
	}

	outcome, err := r.u.client.Upload(ctx, board, data)
	if err != nil {
		return 0, r.fail(&StepError{Step: step, Err: err})
	}
	if !outcome.OK {
		r.logger.Error("Device rejected firmware",
			zap.String("board", string(board)),
			zap.Int("status", outcome.Status),
			zap.String("body", outcome.Body),
		)
		return 0, r.fail(outcomeError(step, r.u.client.IP, outcome))
	}

	r.complete(fmt.Sprintf("%d bytes", len(data)))
	return len(data), nil
}

func (r *run) reboot(ctx context.Context, board device.Board) error {
	name := StepRebootMain
	if board == device.BoardRear {
		name = StepRebootRear
	}
	step := board.Title() + " reboot"

	r.begin(name)
	outcome, err := r.u.client.Reboot(ctx, board)
	if err != nil {
		return r.fail(&StepError{Step: step, Err: err})
	}
	if !outcome.OK {
		return r.fail(outcomeError(step, r.u.client.IP, outcome))
	}

	r.complete("")
	return nil
}

func (r *run) wait(name string, d time.Duration) {
	r.begin(name)
	r.logger.Info("Waiting", zap.String("step", name), zap.Duration("duration", d))
	sleeper := r.u.Sleeper
	if sleeper == nil {
		sleeper = RealSleeper
	}
	sleeper.Sleep(d)
	r.complete(formatWait(d))
}

func (r *run) begin(name string) {
	r.index++
	r.logger.Info("Step started",
		zap.Int("step", r.index),
		zap.String("name", name),
	)
	r.emit(Step{Name: name, Status: StepRunning})
}

func (r *run) complete(note string) {
	r.logger.Info("Step complete",
		zap.Int("step", r.index),
		zap.String("name", StepNames[r.index-1]),
	)
	r.report(StepComplete, note, nil)
}

func (r *run) fail(err *StepError) error {
	r.logger.Error("Step failed", zap.Int("step", r.index), zap.Error(err))
	r.report(StepFailed, "", err)
	return err
}

func (r *run) report(status StepStatus, note string, err error) {
	r.emit(Step{Name: StepNames[r.index-1], Status: status, Note: note, Err: err})
}

func (r *run) emit(step Step) {
	if r.u.OnStep == nil {
		return
	}
	step.Index = r.index
	step.Total = TotalSteps
	r.u.OnStep(step)
}
