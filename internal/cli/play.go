package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spelling-quiz-service/internal/app"
	"spelling-quiz-service/internal/domain"
)

const playHelp = `type your spelling and press enter; commands:
  :play    hear the word again
  :next    skip to a new word
  :reset   zero the score and start over
  :status  show score and attempts
  :quit    leave`

// NewPlayCmd runs a spelling session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play a spelling session in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			// keep the terminal readable; only warnings and above are logged
			logger := setupLogger("production").WithOptions(zap.IncreaseLevel(zap.WarnLevel))
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			b, err := buildBackends(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			return runTerminalSession(b.template, b.newPicker(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// terminalPlayer stands in for a speaker by printing the clip it would play.
type terminalPlayer struct {
	out *syncWriter
}

func (p terminalPlayer) Play(_ context.Context, playback domain.Playback) error {
	p.out.printf("♪ %s (x%.1f, volume %.1f)\n", playback.Clip, playback.Rate, playback.Volume)
	return nil
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format, args...)
}

func runTerminalSession(template app.ControllerConfig, picker app.Picker, in io.Reader, out io.Writer) error {
	w := &syncWriter{w: out}

	// OnChange runs under the controller lock, so hadDefinition needs no extra guard.
	hadDefinition := false
	cfg := template
	cfg.Picker = picker
	cfg.Player = terminalPlayer{out: w}
	cfg.OnChange = func(snap domain.Snapshot) {
		has := snap.Definition != nil
		if has && !hadDefinition {
			w.printf("definition: %s (%s) %s\n", snap.Definition.PartOfSpeech, snap.Definition.Phonetic, snap.Definition.Meaning)
		}
		hadDefinition = has
	}

	controller, err := app.NewController(cfg)
	if err != nil {
		return err
	}
	defer controller.Close()

	w.printf("%s\n", playHelp)
	newRound := func() {
		w.printf("new word! (:play to hear it)\n")
	}

	controller.NextWord()
	newRound()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case ":quit", ":q":
			return nil
		case ":play":
			controller.PlayPronunciation()
		case ":next":
			controller.NextWord()
			newRound()
		case ":reset":
			controller.Reset()
			newRound()
		case ":status":
			snap := controller.Snapshot()
			w.printf("%d pts  %s\n", snap.Score, snap.Status)
		default:
			controller.UpdateGuess(line)
			outcome := controller.SubmitGuess()
			if !outcome.Submitted {
				continue
			}
			snap := controller.Snapshot()
			verdict := "wrong"
			if outcome.Correct {
				verdict = "correct"
			}
			w.printf("%s! the word was %q  %d pts  %s\n", verdict, snap.Word, snap.Score, snap.Status)
		}
	}
	return scanner.Err()
}
