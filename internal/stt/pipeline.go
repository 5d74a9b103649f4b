// Package stt downloads YouTube audio with yt-dlp and transcribes it with the
// whisper CLI. Both tools run as external commands behind a runner interface.
package stt

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode"
)

// Stage identifies the currently running pipeline step.
type Stage string

const (
	StageDownloading  Stage = "downloading"
	StageTranscribing Stage = "transcribing"
)

// Config holds tool locations. Zero values fall back to PATH lookup and the
// system temp dir.
type Config struct {
	YtdlpPath   string
	WhisperPath string
	TmpDir      string
}

// Request describes one transcription run.
type Request struct {
	URL     string
	Model   string // whisper model size, e.g. "base"
	OnStage func(stage Stage)
}

// Result holds the local artifacts of a successful run. Call Cleanup once
// they have been copied out.
type Result struct {
	AudioPath  string
	Transcript string
	tempDir    string
}

func (r *Result) Cleanup() {
	if r == nil || r.tempDir == "" {
		return
	}
	_ = os.RemoveAll(r.tempDir)
	r.tempDir = ""
}

type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		}
	}
	return result, err
}

type Pipeline struct {
	ytdlp   string
	whisper string
	tmpDir  string
	runner  commandRunner
	logger  *slog.Logger
}

func NewPipeline(cfg *Config, logger *slog.Logger) *Pipeline {
	ytdlp := cfg.YtdlpPath
	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	whisper := cfg.WhisperPath
	if whisper == "" {
		whisper = "whisper"
	}
	tmpDir := cfg.TmpDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}

	return &Pipeline{
		ytdlp:   ytdlp,
		whisper: whisper,
		tmpDir:  tmpDir,
		runner:  execRunner{},
		logger:  logger,
	}
}

// NewPipelineForTests injects a fake command runner.
func NewPipelineForTests(ytdlp, whisper, tmpDir string, runner commandRunner, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		ytdlp:   ytdlp,
		whisper: whisper,
		tmpDir:  tmpDir,
		runner:  runner,
		logger:  logger,
	}
}

// Title fetches the video title and sanitizes it into a filename-safe form.
// Failures fall back to a generic name rather than failing the job.
func (p *Pipeline) Title(ctx context.Context, url string) string {
	result, err := p.runner.Run(ctx, p.ytdlp, "--print", "title", "--no-warnings", "--quiet", url)
	if err != nil {
		p.logger.Warn("Failed to fetch video title",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return "youtube_video"
	}

	title := sanitizeTitle(strings.TrimSpace(result.Stdout))
	if title == "" {
		return "youtube_video"
	}
	return title
}

func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// Run downloads the audio track and transcribes it. Artifacts live in a temp
// directory owned by the Result.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	model := req.Model
	if model == "" {
		model = "base"
	}

	tempDir, err := os.MkdirTemp(p.tmpDir, "stt-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	cleanupOnErr := func() { _ = os.RemoveAll(tempDir) }

	if req.OnStage != nil {
		req.OnStage(StageDownloading)
	}

	audioPath := filepath.Join(tempDir, "audio.mp3")
	result, err := p.runner.Run(ctx, p.ytdlp,
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--output", filepath.Join(tempDir, "audio.%(ext)s"),
		"--no-warnings",
		"--quiet",
		req.URL,
	)
	if err != nil {
		cleanupOnErr()
		return nil, fmt.Errorf("audio download failed (exit %d): %s", result.ExitCode, commandFailure(result, err))
	}
	if _, err := os.Stat(audioPath); err != nil {
		cleanupOnErr()
		return nil, fmt.Errorf("audio download produced no file: %w", err)
	}

	if req.OnStage != nil {
		req.OnStage(StageTranscribing)
	}

	result, err = p.runner.Run(ctx, p.whisper,
		audioPath,
		"--model", model,
		"--output_dir", tempDir,
		"--output_format", "txt",
	)
	if err != nil {
		cleanupOnErr()
		return nil, fmt.Errorf("transcription failed (exit %d): %s", result.ExitCode, commandFailure(result, err))
	}

	transcriptPath := filepath.Join(tempDir, "audio.txt")
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		cleanupOnErr()
		return nil, fmt.Errorf("transcription produced no transcript: %w", err)
	}

	return &Result{
		AudioPath:  audioPath,
		Transcript: strings.TrimSpace(string(data)),
		tempDir:    tempDir,
	}, nil
}

func commandFailure(result commandResult, err error) string {
	stderr := strings.TrimSpace(result.Stderr)
	if stderr != "" {
		return stderr
	}
	return err.Error()
}
