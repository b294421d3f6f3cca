package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neilberkman/skypetext/internal/archive"
	"github.com/neilberkman/skypetext/internal/export"
	"github.com/neilberkman/skypetext/internal/logging"
	"github.com/neilberkman/skypetext/internal/skype"
	"github.com/neilberkman/skypetext/internal/transcript"
)

// Options configures a conversion run
type Options struct {
	OutputDir string
	// Timezone is "UTC" or a fixed offset such as "+02:00"
	Timezone string
	// Member is the name of the messages file inside tar archives
	Member string
	Writer export.WriterOptions
}

// Result reports what a run produced
type Result struct {
	Requested int
	Written   []string
	Failed    int
}

// Converter turns Skype exports into transcript files
type Converter struct {
	loader    *archive.Loader
	assembler *transcript.Assembler
	registry  *export.Registry
	writer    *export.Writer
	logger    *slog.Logger
}

// New creates a converter. Output names are numbered across every Run of
// the same converter.
func New(opts Options, logger *slog.Logger) (*Converter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	clock, err := skype.NewClock(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timezone: %w", err)
	}
	return &Converter{
		loader:    archive.NewLoader(opts.Member, logger),
		assembler: transcript.NewAssembler(skype.NewTimeParser(), transcript.NewFormatter(clock, logger), logger),
		registry:  export.NewRegistry(opts.OutputDir),
		writer:    export.NewWriter(opts.Writer, logger),
		logger:    logger,
	}, nil
}

// Run writes the transcript of username's conversation in the export at
// inputPath, or of every conversation when username is empty. A conversation
// that fails is logged and skipped. Cancellation stops the run.
func (c *Converter) Run(ctx context.Context, username, inputPath string) (*Result, error) {
	if _, err := archive.Format(inputPath); err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := c.loader.Load(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load export: %w", err)
	}

	usernames := []string{username}
	if username == "" {
		usernames = transcript.Usernames(data)
	}

	result := &Result{Requested: len(usernames)}
	if len(usernames) == 0 {
		c.logger.Warn("No conversations found", "path", inputPath)
		return result, nil
	}

	for i, name := range usernames {
		c.logger.Info(fmt.Sprintf("Progress: %d / %d", i+1, len(usernames)))

		path, err := c.convertOne(ctx, data, name)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, err
		}
		if err != nil {
			c.logger.Error("Failed to export conversation", "username", name, "error", err)
			result.Failed++
			continue
		}
		result.Written = append(result.Written, path)
	}

	c.logger.Debug("Conversion finished",
		"written", len(result.Written),
		"failed", result.Failed,
		"elapsed", time.Since(start))
	return result, nil
}

func (c *Converter) convertOne(ctx context.Context, data *skype.Export, username string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ctx = logging.WithConversation(ctx, username)
	c.logger.InfoContext(ctx, "Working on username", "username", username)

	conv, err := transcript.SelectConversation(data, username)
	if err != nil {
		return "", err
	}

	text, err := c.assembler.Assemble(ctx, conv)
	if err != nil {
		return "", fmt.Errorf("failed to assemble transcript: %w", err)
	}

	path := c.registry.Path(username)
	if err := c.writer.Write(ctx, path, text); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	return path, nil
}

// Lines renders username's conversation in the export at inputPath without
// writing it. title is the conversation's display name, or username.
func (c *Converter) Lines(ctx context.Context, username, inputPath string) (title string, lines []transcript.Line, err error) {
	if _, err := archive.Format(inputPath); err != nil {
		return "", nil, err
	}
	data, err := c.loader.Load(inputPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load export: %w", err)
	}
	conv, err := transcript.SelectConversation(data, username)
	if err != nil {
		return "", nil, err
	}

	lines, err = c.assembler.Render(logging.WithConversation(ctx, username), conv)
	if err != nil {
		return "", nil, fmt.Errorf("failed to render transcript: %w", err)
	}

	title = username
	if conv.DisplayName != nil && *conv.DisplayName != "" {
		title = skype.CleanMarkup(*conv.DisplayName)
	}
	return title, lines, nil
}
