package extractor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/deemusic/ytmp3-go/internal/identity"
	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBinary is looked up on PATH when no binary is configured
	DefaultBinary = "yt-dlp"
	// DefaultAudioFormat is the codec requested when a job names none
	DefaultAudioFormat = "mp3"

	stderrTailBytes = 512
)

// Config configures the yt-dlp adapter
type Config struct {
	// Binary is a path or PATH name of the yt-dlp executable
	Binary string
	// SpawnRate limits subprocess starts per second; zero or less disables pacing
	SpawnRate float64
	// SpawnBurst is the number of starts allowed back to back
	SpawnBurst int
}

// DefaultConfig returns the default adapter configuration
func DefaultConfig() Config {
	return Config{
		Binary:     DefaultBinary,
		SpawnRate:  2,
		SpawnBurst: 4,
	}
}

// YTDLP runs yt-dlp through go-ytdlp
type YTDLP struct {
	binary  string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewYTDLP creates a yt-dlp backed Extractor
func NewYTDLP(cfg Config, logger *zap.Logger) *YTDLP {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.SpawnRate > 0 {
		limit = rate.Limit(cfg.SpawnRate)
	}
	burst := cfg.SpawnBurst
	if burst <= 0 {
		burst = 1
	}

	return &YTDLP{
		binary:  cfg.Binary,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Binary returns the configured executable
func (y *YTDLP) Binary() string {
	return y.binary
}

func (y *YTDLP) command() *ytdlp.Command {
	return ytdlp.New().
		SetExecutable(y.binary).
		IgnoreConfig().
		NoWarnings().
		NoPlaylist().
		NoCheckCertificates()
}

// Title implements Extractor
func (y *YTDLP) Title(ctx context.Context, url string, profile identity.Profile) (string, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("spawn limiter: %w", err)
	}

	start := time.Now()
	res, err := y.command().
		Print("%(title)s").
		Run(ctx, "--user-agent", profile.UserAgent, "--", url)

	y.logger.Debug("yt-dlp title lookup finished",
		zap.String("profile", profile.Name),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("ok", err == nil))

	if err != nil {
		return "", runError("title lookup", ctx, res, err)
	}

	title := firstLine(res.Stdout)
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}

// ExtractAudio implements Extractor
func (y *YTDLP) ExtractAudio(ctx context.Context, job AudioJob, profile identity.Profile) error {
	if job.OutputDir == "" || job.BaseName == "" {
		return fmt.Errorf("audio job needs an output directory and base name")
	}
	format := job.Format
	if format == "" {
		format = DefaultAudioFormat
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("spawn limiter: %w", err)
	}

	start := time.Now()
	res, err := y.command().
		ExtractAudio().
		AudioFormat(format).
		Output(job.OutputTemplate()).
		Run(ctx, audioArgs(profile, job.SourceURL)...)

	y.logger.Debug("yt-dlp audio extraction finished",
		zap.String("profile", profile.Name),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("ok", err == nil))

	if err != nil {
		return runError("audio extraction", ctx, res, err)
	}
	return nil
}

func audioArgs(profile identity.Profile, url string) []string {
	return []string{
		"--user-agent", profile.UserAgent,
		"--sleep-interval", strconv.Itoa(profile.MinDelaySeconds),
		"--max-sleep-interval", strconv.Itoa(profile.MaxDelaySeconds),
		"--", url,
	}
}

func runError(op string, ctx context.Context, res *ytdlp.Result, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("yt-dlp %s: %w", op, ctxErr)
	}
	if res != nil {
		if tail := stderrTail(res.Stderr); tail != "" {
			return fmt.Errorf("yt-dlp %s: %w: %s", op, err, tail)
		}
	}
	return fmt.Errorf("yt-dlp %s: %w", op, err)
}

func firstLine(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func stderrTail(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > stderrTailBytes {
		stderr = "..." + stderr[len(stderr)-stderrTailBytes:]
	}
	return stderr
}
