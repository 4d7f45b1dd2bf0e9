// Package media shells out to ffmpeg/ffprobe for duration probing and
// per-window audio extraction.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cabinetlabs/seanced/internal/types"
)

// HaveFFmpeg reports whether the ffmpeg binary is on PATH.
func HaveFFmpeg() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// HaveFFprobe reports whether the ffprobe binary is on PATH.
func HaveFFprobe() bool {
	_, err := exec.LookPath("ffprobe")
	return err == nil
}

// ProbeDuration returns the duration of an audio file in seconds.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %v", path, err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q: %v", out, err)
	}
	return dur, nil
}

// ExtractWindow cuts one time window out of the source file as 16kHz mono
// WAV and returns its bytes. The intermediate file lives in tmpDir and is
// removed before returning.
func ExtractWindow(ctx context.Context, srcPath string, w types.Window, tmpDir string) ([]byte, error) {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	out := filepath.Join(tmpDir, fmt.Sprintf("window_%d_%s.wav", w.Index, uuid.New().String()))
	defer os.Remove(out)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", strconv.FormatFloat(w.Start, 'f', 3, 64),
		"-t", strconv.FormatFloat(w.End-w.Start, 'f', 3, 64),
		"-i", srcPath,
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-y",
		out,
	)
	if combined, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed for window %d: %v\nOutput: %s", w.Index, err, string(combined))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted window %d: %v", w.Index, err)
	}
	return data, nil
}

// ValidateAudioFormat checks if the file format is supported
func ValidateAudioFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	supported := []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm", ".aac", ".wma", ".mp4"}
	for _, format := range supported {
		if ext == format {
			return true
		}
	}
	return false
}
