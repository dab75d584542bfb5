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
	"os"
	"path/filepath"
	"testing"
)

// writeSized creates a file of exactly size bytes.
func writeSized(t *testing.T, dir, name string, size int64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	return path
}

func TestResolveCompletionExitStates(t *testing.T) {
	tests := []struct {
		name string
		exit ExitOutcome
		want Outcome
	}{
		{"clean exit", ExitOutcome{Code: 0}, OutcomeSuccess},
		{"nonzero exit", ExitOutcome{Code: 1}, OutcomeFailure},
		{"cancelled", ExitOutcome{Cancelled: true}, OutcomeCancelled},
		{"cancelled wins over clean exit", ExitOutcome{Cancelled: true, Code: 0}, OutcomeCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCompletion(tt.exit, false, "in.mkv", "out.mp4")
			if got.Outcome != tt.want {
				t.Errorf("ResolveCompletion() outcome = %v, want %v", got.Outcome, tt.want)
			}
		})
	}
}

func TestResolveCompletionFailureKeepsExitCode(t *testing.T) {
	got := ResolveCompletion(ExitOutcome{Code: 187}, true, "in.mkv", "out.mp4")
	if got.Outcome != OutcomeFailure || got.ExitCode != 187 {
		t.Errorf("ResolveCompletion() = %+v, want failure with exit code 187", got)
	}
}

func TestResolveCompletionDeletesLargeOutput(t *testing.T) {
	dir := t.TempDir()
	// 20 MiB input, 4 MiB output: above both the absolute floor and the 10%
	// threshold, so the source goes away.
	input := writeSized(t, dir, "in.mkv", 20<<20)
	output := writeSized(t, dir, "out.mp4", 4<<20)

	got := ResolveCompletion(ExitOutcome{}, true, input, output)
	if got.Outcome != OutcomeSuccess || !got.Deleted {
		t.Fatalf("ResolveCompletion() = %+v, want success with deletion", got)
	}
	if _, err := os.Stat(input); !os.IsNotExist(err) {
		t.Error("source file still exists after deletion")
	}
}

func TestResolveCompletionWithholdsDeletion(t *testing.T) {
	tests := []struct {
		name    string
		inSize  int64
		outSize int64
	}{
		{"output under absolute floor", 2 << 20, 512 << 10},
		{"output under ten percent of large input", 100 << 20, 8 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			input := writeSized(t, dir, "in.mkv", tt.inSize)
			output := writeSized(t, dir, "out.mp4", tt.outSize)

			got := ResolveCompletion(ExitOutcome{}, true, input, output)
			if got.Outcome != OutcomeSuccessNoDelete {
				t.Fatalf("ResolveCompletion() = %+v, want success without deletion", got)
			}
			if got.Detail == "" {
				t.Error("withheld deletion should carry a detail message")
			}
			if _, err := os.Stat(input); err != nil {
				t.Errorf("source file should survive: %v", err)
			}
		})
	}
}

func TestResolveCompletionSmallInputUsesFloor(t *testing.T) {
	dir := t.TempDir()
	// A tiny input makes the 10% rule nearly zero; the 1 MiB floor still
	// applies and a 2 MiB output passes it.
	input := writeSized(t, dir, "in.mkv", 100<<10)
	output := writeSized(t, dir, "out.mp4", 2<<20)

	got := ResolveCompletion(ExitOutcome{}, true, input, output)
	if got.Outcome != OutcomeSuccess || !got.Deleted {
		t.Errorf("ResolveCompletion() = %+v, want success with deletion", got)
	}
}

func TestResolveCompletionMissingOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeSized(t, dir, "in.mkv", 20<<20)

	got := ResolveCompletion(ExitOutcome{}, true, input, filepath.Join(dir, "missing.mp4"))
	if got.Outcome != OutcomeSuccess || got.Deleted {
		t.Fatalf("ResolveCompletion() = %+v, want success without deletion", got)
	}
	if got.Detail == "" {
		t.Error("missing output should carry a detail message")
	}
	if _, err := os.Stat(input); err != nil {
		t.Errorf("source file should survive: %v", err)
	}
}

func TestResolveCompletionCancelledNeverDeletes(t *testing.T) {
	dir := t.TempDir()
	input := writeSized(t, dir, "in.mkv", 20<<20)
	output := writeSized(t, dir, "out.mp4", 19<<20)

	got := ResolveCompletion(ExitOutcome{Cancelled: true}, true, input, output)
	if got.Outcome != OutcomeCancelled || got.Deleted {
		t.Fatalf("ResolveCompletion() = %+v, want cancelled without deletion", got)
	}
	if _, err := os.Stat(input); err != nil {
		t.Errorf("source file should survive cancellation: %v", err)
	}
}
