// Copyright 2025 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package runner drives expanded jobs to completion: resolve dataset paths,
// decide per participant whether work remains, gate execution through the
// admission controller and hand the actual run to the container launcher.
// Work is strictly sequential, one container at a time per invocation.
package runner

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pingcap/bidsflow/pkg/admission"
	"github.com/pingcap/bidsflow/pkg/apptainer"
	"github.com/pingcap/bidsflow/pkg/batch"
	"github.com/pingcap/bidsflow/pkg/bids"
	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/pingcap/bidsflow/pkg/logutil"
	"github.com/pingcap/bidsflow/pkg/retry"
	"github.com/pingcap/bidsflow/pkg/tool"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// admission wait backoff bounds, in milliseconds
const (
	waitBaseDelayMs = 1000
	waitMaxDelayMs  = 15000
)

// Launcher runs one participant's pipeline container.
type Launcher interface {
	Run(ctx context.Context, spec apptainer.LaunchSpec) error
	CommandLine(spec apptainer.LaunchSpec) string
}

// ImageStore materializes tool container images.
type ImageStore interface {
	ImagePath(t tool.Tool, version string) string
	Ensure(ctx context.Context, t tool.Tool, version string) (string, error)
}

// Options carry the per-invocation run knobs.
type Options struct {
	OutputLabel string
	ExtraArgs   []string
	Wait        bool
	WaitTimeout time.Duration
	DryRun      bool
}

// Driver executes jobs in expansion order.
type Driver struct {
	RawdataRoot     string
	DerivativesRoot string
	License         string

	Admission *admission.Controller
	Store     ImageStore
	Launcher  Launcher
	Options   Options
}

// Summary counts per-participant outcomes of one run.
type Summary struct {
	Completed int
	Skipped   int
	Failed    int
}

func (s *Summary) merge(other Summary) {
	s.Completed += other.Completed
	s.Skipped += other.Skipped
	s.Failed += other.Failed
}

// launchEnv is the per-job environment shared by all its participants.
type launchEnv struct {
	rawDir      string
	derivDir    string
	outputLabel string
	image       string
}

// RunJobs executes jobs in order. A job whose preconditions fail (missing
// dataset, missing license, failed image build) is logged and the remaining
// jobs still run; the combined error reports such jobs at the end. Admission
// denial and cancellation end the invocation immediately. Participant-level
// failures only advance the loop and show up in the summary, never in the
// returned error.
func (d *Driver) RunJobs(ctx context.Context, jobs []batch.Job) (Summary, error) {
	var (
		total   Summary
		jobErrs []error
	)
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return total, errors.Trace(err)
		}
		summary, err := d.runJob(ctx, job)
		total.merge(summary)
		if err != nil {
			if isFatal(err) {
				return total, err
			}
			log.Error("job failed", zap.String("job", job.String()), logutil.ShortError(err))
			jobErrs = append(jobErrs, err)
		}
	}
	log.Info("run finished",
		zap.Int("completed", total.Completed),
		zap.Int("skipped", total.Skipped),
		zap.Int("failed", total.Failed))
	return total, multierr.Combine(jobErrs...)
}

func (d *Driver) runJob(ctx context.Context, job batch.Job) (Summary, error) {
	var summary Summary

	rawDir := bids.RawdataDir(d.RawdataRoot, job.Dataset)
	if st, err := os.Stat(rawDir); err != nil || !st.IsDir() {
		available, _ := bids.Datasets(d.RawdataRoot)
		log.Warn("dataset rawdata directory not found",
			zap.String("dataset", job.Dataset),
			zap.Strings("available", available))
		return summary, cerror.ErrDatasetNotFound.GenWithStackByArgs(job.Dataset, d.RawdataRoot)
	}

	outputLabel := d.Options.OutputLabel
	if outputLabel == "" {
		outputLabel = job.Tool.DefaultOutputLabel(job.Version)
	}
	derivDir := bids.DerivativesDir(d.DerivativesRoot, job.Dataset)
	outDir := filepath.Join(derivDir, outputLabel)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return summary, cerror.WrapError(cerror.ErrCheckDirWritable, err, outDir)
	}

	if _, err := os.Stat(d.License); err != nil {
		return summary, cerror.ErrLicenseNotFound.GenWithStackByArgs(d.License)
	}

	labels, err := d.resolveParticipants(job, rawDir, outDir)
	if err != nil {
		return summary, err
	}
	if len(labels) == 0 {
		log.Info("no pending participants for job", zap.String("job", job.String()))
		return summary, nil
	}

	image := d.Store.ImagePath(job.Tool, job.Version)
	if !d.Options.DryRun {
		if image, err = d.Store.Ensure(ctx, job.Tool, job.Version); err != nil {
			return summary, err
		}
	}

	env := launchEnv{rawDir: rawDir, derivDir: derivDir, outputLabel: outputLabel, image: image}
	for _, label := range labels {
		if err := ctx.Err(); err != nil {
			return summary, errors.Trace(err)
		}
		if _, err := os.Stat(filepath.Join(outDir, bids.SubjectDirName(label))); err == nil {
			log.Info("participant already complete, skipping",
				zap.String("job", job.String()), zap.String("participant", label))
			summary.Skipped++
			continue
		}
		modality := job.Tool.RequiredModality()
		if !bids.HasModality(rawDir, label, modality) {
			log.Warn("participant misses the required input modality",
				zap.String("job", job.String()),
				zap.String("participant", label),
				zap.String("modality", modality))
			summary.Failed++
			continue
		}

		if err := d.runParticipant(ctx, job, env, label); err != nil {
			if isFatal(err) {
				return summary, err
			}
			summary.Failed++
			log.Error("participant failed, continuing with the next one",
				zap.String("job", job.String()),
				zap.String("participant", label),
				logutil.ShortError(err))
			continue
		}
		summary.Completed++
	}

	log.Info("job finished",
		zap.String("job", job.String()),
		zap.Int("completed", summary.Completed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// resolveParticipants returns the labels a job should run, in order. Without
// explicit labels the pending set is the completion diff rawdata minus
// output. Explicit labels missing from the rawdata are dropped with a
// warning; when none survive the job fails with ErrParticipantNotFound.
func (d *Driver) resolveParticipants(job batch.Job, rawDir, outDir string) ([]string, error) {
	if len(job.Participants) == 0 {
		return bids.Missing(rawDir, outDir)
	}

	present, err := bids.Participants(rawDir)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(job.Participants))
	for _, label := range job.Participants {
		if _, ok := present[label]; !ok {
			log.Warn("requested participant not in dataset, dropping it",
				zap.String("dataset", job.Dataset), zap.String("participant", label))
			continue
		}
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return nil, cerror.ErrParticipantNotFound.GenWithStackByArgs(job.Dataset)
	}
	return labels, nil
}

// runParticipant launches one participant under an admission slot. The slot
// is released before returning, whatever the launch outcome; a dry run
// claims no slot at all.
func (d *Driver) runParticipant(ctx context.Context, job batch.Job, env launchEnv, label string) (err error) {
	spec := apptainer.LaunchSpec{
		Image:          env.image,
		RawdataDir:     env.rawDir,
		DerivativesDir: env.derivDir,
		License:        d.License,
		Tool:           job.Tool,
		OutputLabel:    env.outputLabel,
		Participant:    label,
		ExtraArgs:      d.Options.ExtraArgs,
	}
	if d.Options.DryRun {
		log.Info("dry run, not launching", zap.String("cmd", d.Launcher.CommandLine(spec)))
		return nil
	}

	slot, err := d.acquire(ctx, job.String()+" sub-"+label)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, slot.Release())
	}()

	return d.Launcher.Run(ctx, spec)
}

// acquire claims an admission slot, waiting for one to free up when the
// invocation runs with --wait.
func (d *Driver) acquire(ctx context.Context, descriptor string) (*admission.Slot, error) {
	slot, err := d.Admission.Acquire(descriptor)
	if err == nil || !d.Options.Wait || !cerror.IsTooManyInstances(err) {
		return slot, err
	}

	log.Info("admission limit reached, waiting for a free slot",
		zap.String("job", descriptor),
		zap.Duration("timeout", d.Options.WaitTimeout))
	err = retry.Do(ctx, func() error {
		var aerr error
		slot, aerr = d.Admission.Acquire(descriptor)
		return aerr
	},
		retry.WithInfiniteTries(),
		retry.WithTotalRetryDuration(d.Options.WaitTimeout),
		retry.WithBackoffBaseDelay(waitBaseDelayMs),
		retry.WithBackoffMaxDelay(waitMaxDelayMs),
		retry.WithIsRetryableErr(cerror.IsTooManyInstances))
	return slot, err
}

// isFatal reports whether err must end the whole invocation rather than be
// absorbed as a single job's or participant's failure.
func isFatal(err error) bool {
	switch errors.Cause(err) {
	case context.Canceled, context.DeadlineExceeded:
		return true
	}
	return cerror.IsTooManyInstances(err) || cerror.ErrReachMaxTry.Equal(err)
}
