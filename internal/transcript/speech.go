package transcript

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recap-cli/internal/model"
)

// CommandRunner runs an external program and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
	if err != nil {
		return out, eris.Wrapf(err, "%s: %s", name, tail(string(out), 500))
	}
	return out, nil
}

// AudioDownloader fetches a video's audio track into dir and returns the
// path of the downloaded file.
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, videoID, dir string) (string, error)
}

// SpeechTranscriber transcribes an audio file. It writes outStem + ".txt"
// and returns that path.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audioPath, outStem string) (string, error)
}

// YTDLP downloads audio with yt-dlp, converted to 16 kHz mono WAV.
type YTDLP struct {
	Runner CommandRunner
	Binary string
}

// DownloadAudio implements AudioDownloader.
func (y YTDLP) DownloadAudio(ctx context.Context, videoID, dir string) (string, error) {
	bin := y.Binary
	if bin == "" {
		bin = "yt-dlp"
	}
	args := []string{
		"--quiet", "--no-playlist",
		"-f", "bestaudio/best",
		"-x", "--audio-format", "wav",
		"--postprocessor-args", "ffmpeg:-ar 16000 -ac 1",
		"-o", filepath.Join(dir, "audio.%(ext)s"),
		model.WatchURL(videoID),
	}
	if _, err := y.Runner.Run(ctx, bin, args...); err != nil {
		return "", eris.Wrap(err, "stt: download audio")
	}
	matches, err := filepath.Glob(filepath.Join(dir, "audio.*"))
	if err != nil || len(matches) == 0 {
		return "", eris.New("stt: downloader produced no audio file")
	}
	return matches[0], nil
}

// WhisperCLI transcribes with the whisper.cpp command line tool.
type WhisperCLI struct {
	Runner    CommandRunner
	Binary    string
	ModelPath string
	Language  string
	Threads   int
}

// Transcribe implements SpeechTranscriber.
func (w WhisperCLI) Transcribe(ctx context.Context, audioPath, outStem string) (string, error) {
	bin := w.Binary
	if bin == "" {
		bin = "whisper-cli"
	}
	lang := w.Language
	if lang == "" {
		lang = "en"
	}
	args := []string{"-m", w.ModelPath, "-f", audioPath, "-l", lang, "-otxt", "-of", outStem, "-np"}
	if w.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(w.Threads))
	}
	if _, err := w.Runner.Run(ctx, bin, args...); err != nil {
		return "", eris.Wrap(err, "stt: transcribe")
	}
	return outStem + ".txt", nil
}

// SpeechStage downloads the audio and runs local speech recognition. Each
// call owns a scratch directory named after the video and run, removed on
// every return path.
type SpeechStage struct {
	downloader  AudioDownloader
	transcriber SpeechTranscriber
	scratchRoot string
	runID       string
}

// NewSpeechStage creates the offline speech stage. An empty scratchRoot uses
// the system temp directory.
func NewSpeechStage(d AudioDownloader, t SpeechTranscriber, scratchRoot, runID string) *SpeechStage {
	return &SpeechStage{downloader: d, transcriber: t, scratchRoot: scratchRoot, runID: runID}
}

// Name implements Stage.
func (s *SpeechStage) Name() model.TranscriptSource { return model.TranscriptSourceSpeech }

// Fetch implements Stage.
func (s *SpeechStage) Fetch(ctx context.Context, videoID string) (string, error) {
	dir, err := os.MkdirTemp(s.scratchRoot, "recap-stt-"+safeName(videoID)+"-"+s.runID+"-")
	if err != nil {
		return "", eris.Wrap(err, "stt: create scratch dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	audio, err := s.downloader.DownloadAudio(ctx, videoID, dir)
	if err != nil {
		return "", err
	}
	txtPath, err := s.transcriber.Transcribe(ctx, audio, filepath.Join(dir, "transcript"))
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", eris.Wrap(err, "stt: read transcript")
	}
	return strings.TrimSpace(string(data)), nil
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
