// Copyright 2025 CommunityBig
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ffwrap

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
)

// Outcome is the terminal state a conversion reports.
type Outcome int

const (
	// OutcomeSuccess: conversion succeeded; Deleted says whether the source
	// was removed.
	OutcomeSuccess Outcome = iota
	// OutcomeSuccessNoDelete: conversion succeeded but a requested deletion
	// was withheld; Detail says why.
	OutcomeSuccessNoDelete
	// OutcomeFailure: ffmpeg exited nonzero.
	OutcomeFailure
	// OutcomeCancelled: the job was cancelled before completion.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSuccessNoDelete:
		return "success-no-delete"
	case OutcomeFailure:
		return "failure"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Result is the final report for a conversion job.
type Result struct {
	Outcome  Outcome
	ExitCode int
	Deleted  bool
	Detail   string
}

// minOutputSize is the absolute floor an output must exceed before the
// source may be deleted.
const minOutputSize = 1 << 20 // 1 MiB

// ResolveCompletion decides the terminal outcome from the exit state and,
// when deletion of the source was requested, applies the size heuristic: the
// output must exceed max(1 MiB, 10% of the input) or the source is kept. A
// failed deletion never escalates to a job failure; the conversion itself
// succeeded.
func ResolveCompletion(exit ExitOutcome, deleteRequested bool, inputPath, outputPath string) Result {
	if exit.Cancelled {
		return Result{Outcome: OutcomeCancelled}
	}
	if exit.Code != 0 {
		return Result{Outcome: OutcomeFailure, ExitCode: exit.Code}
	}
	if !deleteRequested {
		return Result{Outcome: OutcomeSuccess}
	}

	outInfo, err := os.Stat(outputPath)
	if err != nil {
		return Result{
			Outcome: OutcomeSuccess,
			Detail:  fmt.Sprintf("output not found or not accessible: %q", outputPath),
		}
	}
	inInfo, err := os.Stat(inputPath)
	if err != nil {
		return Result{
			Outcome: OutcomeSuccess,
			Detail:  fmt.Sprintf("source not found or not accessible: %q", inputPath),
		}
	}

	threshold := int64(float64(inInfo.Size()) * 0.10)
	if threshold < minOutputSize {
		threshold = minOutputSize
	}
	if outInfo.Size() <= threshold {
		return Result{
			Outcome: OutcomeSuccessNoDelete,
			Detail: fmt.Sprintf("converted file size looks suspicious (%s vs %s source), keeping the original",
				humanize.IBytes(uint64(outInfo.Size())), humanize.IBytes(uint64(inInfo.Size()))),
		}
	}

	if err := os.Remove(inputPath); err != nil {
		return Result{
			Outcome: OutcomeSuccessNoDelete,
			Detail:  fmt.Sprintf("could not delete the original file: %v", err),
		}
	}
	return Result{Outcome: OutcomeSuccess, Deleted: true}
}
