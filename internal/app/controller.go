package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"spelling-quiz-service/internal/domain"
)

// ScoreReward is the number of points a correct spelling earns.
const ScoreReward = 10

// DefinitionLookup resolves a word to its dictionary metadata.
type DefinitionLookup interface {
	Lookup(ctx context.Context, word string) (domain.Definition, error)
}

// Player plays an audio clip. Implementations may block; the controller never waits on them.
type Player interface {
	Play(ctx context.Context, playback domain.Playback) error
}

// AudioSettings are the fixed clips and levels used for playback requests.
type AudioSettings struct {
	DefaultClip       string
	CorrectClip       string
	WrongClip         string
	PronunciationRate float64
	FeedbackVolume    float64
}

// DefaultAudioSettings mirrors the clips bundled with the web client.
func DefaultAudioSettings() AudioSettings {
	return AudioSettings{
		DefaultClip:       "/static/audio/loading-audio.mp3",
		CorrectClip:       "/static/audio/correct-answer.mp3",
		WrongClip:         "/static/audio/wrong-answer.mp3",
		PronunciationRate: 0.8,
		FeedbackVolume:    0.2,
	}
}

// ControllerConfig wires a Controller to its corpus and collaborators.
type ControllerConfig struct {
	Corpus   domain.Corpus
	Lookup   DefinitionLookup
	Player   Player
	Picker   Picker
	Audio    AudioSettings
	Log      *zap.Logger
	OnChange func(domain.Snapshot)
}

// Controller is the spelling quiz state machine for a single player.
// All operations are serialized; lookups and playback run in the background
// and merge back under the same lock.
type Controller struct {
	corpus   domain.Corpus
	lookup   DefinitionLookup
	player   Player
	picker   Picker
	audio    AudioSettings
	log      *zap.Logger
	onChange func(domain.Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// lookupDone runs after each lookup has been merged or discarded; tests only.
	lookupDone func(word string)

	mu         sync.Mutex
	generation uint64
	current    domain.WordEntry
	guess      string
	revealed   bool
	correct    bool
	score      int
	attempts   int
	definition *domain.Definition
}

// NewController validates the corpus and returns an uninitialized controller.
// No word is drawn until NextWord is called.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Picker == nil {
		cfg.Picker = NewRandomPicker(true)
	}
	if err := validateCorpus(cfg.Corpus, cfg.Picker.FirstEligible()); err != nil {
		return nil, err
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Audio == (AudioSettings{}) {
		cfg.Audio = DefaultAudioSettings()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		corpus:   cfg.Corpus,
		lookup:   cfg.Lookup,
		player:   cfg.Player,
		picker:   cfg.Picker,
		audio:    cfg.Audio,
		log:      cfg.Log,
		onChange: cfg.OnChange,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func validateCorpus(corpus domain.Corpus, first int) error {
	if len(corpus) < first+1 {
		return fmt.Errorf("%w: have %d, need at least %d", domain.ErrCorpusTooSmall, len(corpus), first+1)
	}
	for i, entry := range corpus {
		if entry.Word == "" {
			return fmt.Errorf("%w: index %d", domain.ErrInvalidWordEntry, i)
		}
	}
	return nil
}

// NextWord draws a new word, clears the guess and reveal, and starts resolving its definition.
func (c *Controller) NextWord() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextWordLocked()
	c.notifyLocked()
}

func (c *Controller) nextWordLocked() {
	c.current = c.corpus[c.picker.Pick(len(c.corpus))]
	c.guess = ""
	c.revealed = false
	c.definition = nil
	c.generation++

	if c.lookup == nil {
		return
	}
	gen, word := c.generation, c.current.Word
	c.wg.Add(1)
	go c.resolveDefinition(gen, word)
}

func (c *Controller) resolveDefinition(gen uint64, word string) {
	defer c.wg.Done()
	if c.lookupDone != nil {
		defer c.lookupDone(word)
	}

	def, err := c.lookup.Lookup(c.ctx, word)
	if err != nil {
		c.log.Debug("definition lookup failed", zap.String("word", word), zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.log.Debug("discarding stale definition", zap.String("word", word))
		return
	}
	c.definition = &def
	c.notifyLocked()
}

// UpdateGuess stores the in-progress guess verbatim.
func (c *Controller) UpdateGuess(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guess = text
	c.notifyLocked()
}

// SubmitGuess judges the current guess. A blank guess is ignored.
func (c *Controller) SubmitGuess() domain.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	guess := strings.TrimSpace(c.guess)
	if guess == "" || c.current.IsZero() {
		return domain.Outcome{Score: c.score, Attempts: c.attempts}
	}

	c.attempts++
	c.revealed = true
	c.correct = strings.ToLower(guess) == strings.ToLower(c.current.Word)

	clip := c.audio.WrongClip
	if c.correct {
		c.score += ScoreReward
		clip = c.audio.CorrectClip
	}
	c.playLocked(domain.Playback{Clip: clip, Rate: 1, Volume: c.audio.FeedbackVolume})
	c.notifyLocked()

	return domain.Outcome{
		Submitted: true,
		Correct:   c.correct,
		Score:     c.score,
		Attempts:  c.attempts,
	}
}

// Reset zeroes the counters and draws a fresh word.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.score = 0
	c.attempts = 0
	c.revealed = false
	c.correct = false
	c.nextWordLocked()
	c.notifyLocked()
}

// PlayPronunciation requests the current word's clip, or the default clip if there is none.
func (c *Controller) PlayPronunciation() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clip := c.current.AudioRef
	if clip == "" {
		clip = c.audio.DefaultClip
	}
	c.playLocked(domain.Playback{Clip: clip, Rate: c.audio.PronunciationRate, Volume: 1})
}

func (c *Controller) playLocked(p domain.Playback) {
	if c.player == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.player.Play(c.ctx, p); err != nil {
			c.log.Debug("playback failed", zap.String("clip", p.Clip), zap.Error(err))
		}
	}()
}

// StatusLabel reports "<correct>/<attempts>". It stays "0/0" until the first
// correct answer, even when wrong attempts have been made.
func (c *Controller) StatusLabel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() string {
	if c.score != 0 && c.attempts != 0 {
		return fmt.Sprintf("%d/%d", c.score/ScoreReward, c.attempts)
	}
	return "0/0"
}

// CurrentWord returns the active challenge, zero before the first draw.
func (c *Controller) CurrentWord() domain.WordEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Snapshot returns the client-facing view of the session.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Phase:    c.phaseLocked(),
		Score:    c.score,
		Attempts: c.attempts,
		Status:   c.statusLocked(),
		Guess:    c.guess,
		Revealed: c.revealed,
		Correct:  c.revealed && c.correct,
		HasAudio: c.current.AudioRef != "",
	}
	if c.revealed {
		snap.Word = c.current.Word
	}
	if c.definition != nil {
		def := *c.definition
		snap.Definition = &def
	}
	return snap
}

func (c *Controller) phaseLocked() domain.Phase {
	switch {
	case c.current.IsZero():
		return domain.PhaseUninitialized
	case c.revealed:
		return domain.PhaseRevealed
	default:
		return domain.PhaseAwaitingGuess
	}
}

func (c *Controller) notifyLocked() {
	if c.onChange != nil {
		c.onChange(c.snapshotLocked())
	}
}

// Wait blocks until in-flight lookups and playback requests have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels outstanding lookups and playback and waits for them to return.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}
