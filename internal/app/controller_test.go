package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spelling-quiz-service/internal/domain"
)

func appleCorpus() domain.Corpus {
	return domain.Corpus{
		{Word: "ignored", AudioRef: "ignored.mp3"},
		{Word: "Apple", AudioRef: "apple.mp3"},
	}
}

func newTestController(t *testing.T, cfg ControllerConfig) (*Controller, *recordingPlayer) {
	t.Helper()
	player := &recordingPlayer{}
	if cfg.Corpus == nil {
		cfg.Corpus = appleCorpus()
	}
	if cfg.Picker == nil {
		cfg.Picker = &sequencePicker{first: 1, seq: []int{1}}
	}
	if cfg.Player == nil {
		cfg.Player = player
	}
	c, err := NewController(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, player
}

func TestController_CorrectGuess(t *testing.T) {
	t.Parallel()

	c, player := newTestController(t, ControllerConfig{})
	c.NextWord()
	require.Equal(t, "Apple", c.CurrentWord().Word)

	c.UpdateGuess("apple")
	outcome := c.SubmitGuess()
	c.Wait()

	assert.Equal(t, domain.Outcome{Submitted: true, Correct: true, Score: 10, Attempts: 1}, outcome)
	snap := c.Snapshot()
	assert.True(t, snap.Revealed)
	assert.True(t, snap.Correct)
	assert.Equal(t, 10, snap.Score)
	assert.Equal(t, 1, snap.Attempts)
	assert.Equal(t, "Apple", snap.Word)
	assert.Equal(t, domain.PhaseRevealed, snap.Phase)

	plays := player.played()
	require.Len(t, plays, 1)
	assert.Equal(t, domain.Playback{Clip: DefaultAudioSettings().CorrectClip, Rate: 1, Volume: 0.2}, plays[0])
}

func TestController_WrongGuess(t *testing.T) {
	t.Parallel()

	c, player := newTestController(t, ControllerConfig{})
	c.NextWord()
	c.UpdateGuess("Banana")
	outcome := c.SubmitGuess()
	c.Wait()

	assert.Equal(t, domain.Outcome{Submitted: true, Correct: false, Score: 0, Attempts: 1}, outcome)
	snap := c.Snapshot()
	assert.True(t, snap.Revealed)
	assert.False(t, snap.Correct)
	assert.Equal(t, "Banana", snap.Guess, "guess is kept after a wrong submit")

	plays := player.played()
	require.Len(t, plays, 1)
	assert.Equal(t, DefaultAudioSettings().WrongClip, plays[0].Clip)
	assert.Equal(t, 0.2, plays[0].Volume)
}

func TestController_GuessIsTrimmedAndCaseInsensitive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		guess   string
		correct bool
	}{
		{name: "exact", guess: "Apple", correct: true},
		{name: "upper with spaces", guess: "  APPLE\t", correct: true},
		{name: "inner space", guess: "Ap ple", correct: false},
		{name: "prefix", guess: "Appl", correct: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newTestController(t, ControllerConfig{})
			c.NextWord()
			c.UpdateGuess(tt.guess)
			assert.Equal(t, tt.correct, c.SubmitGuess().Correct)
		})
	}
}

func TestController_StatusLabel(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(t, ControllerConfig{})
	c.NextWord()
	assert.Equal(t, "0/0", c.StatusLabel())

	c.UpdateGuess("wrong")
	c.SubmitGuess()
	assert.Equal(t, "0/0", c.StatusLabel(), "zero score reports 0/0 even with attempts")

	c.NextWord()
	c.UpdateGuess("apple")
	c.SubmitGuess()
	assert.Equal(t, "1/2", c.StatusLabel())

	c.NextWord()
	c.UpdateGuess("nope")
	c.SubmitGuess()
	assert.Equal(t, "1/3", c.StatusLabel())
	assert.Equal(t, "1/3", c.Snapshot().Status)
}

func TestController_EmptyGuessIsNoop(t *testing.T) {
	t.Parallel()

	c, player := newTestController(t, ControllerConfig{})
	c.NextWord()

	for _, guess := range []string{"", "   ", "\t\n"} {
		c.UpdateGuess(guess)
		for i := 0; i < 3; i++ {
			outcome := c.SubmitGuess()
			assert.False(t, outcome.Submitted)
		}
	}
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, 0, snap.Score)
	assert.Equal(t, 0, snap.Attempts)
	assert.False(t, snap.Revealed)
	assert.Empty(t, player.played())
}

func TestController_NextWordClearsRound(t *testing.T) {
	t.Parallel()

	lookup := &mapLookup{defs: map[string]domain.Definition{"Apple": {Meaning: "A fruit."}}}
	c, _ := newTestController(t, ControllerConfig{Lookup: lookup})
	c.NextWord()
	c.Wait()
	require.NotNil(t, c.Snapshot().Definition)

	c.UpdateGuess("apple")
	c.SubmitGuess()
	require.True(t, c.Snapshot().Revealed)

	lookup.fail(true)
	c.NextWord()
	snap := c.Snapshot()
	assert.Equal(t, "", snap.Guess)
	assert.False(t, snap.Revealed)
	assert.False(t, snap.Correct)
	assert.Nil(t, snap.Definition, "definition cleared on draw")
	assert.Empty(t, snap.Word)
	assert.Equal(t, domain.PhaseAwaitingGuess, snap.Phase)
	assert.Equal(t, 10, snap.Score, "score survives a new word")

	c.Wait()
	assert.Nil(t, c.Snapshot().Definition, "failed lookup leaves definition empty")
}

func TestController_Reset(t *testing.T) {
	t.Parallel()

	corpus := domain.Corpus{{Word: "ignored"}, {Word: "Apple"}, {Word: "pear"}}
	c, _ := newTestController(t, ControllerConfig{
		Corpus: corpus,
		Picker: &sequencePicker{first: 1, seq: []int{1, 1, 2}},
	})
	c.NextWord()
	c.UpdateGuess("apple")
	c.SubmitGuess()
	c.NextWord()
	c.UpdateGuess("nope")
	c.SubmitGuess()
	require.Equal(t, 2, c.Snapshot().Attempts)

	c.Reset()
	snap := c.Snapshot()
	assert.Equal(t, 0, snap.Score)
	assert.Equal(t, 0, snap.Attempts)
	assert.False(t, snap.Revealed)
	assert.Equal(t, "", snap.Guess)
	assert.Equal(t, "pear", c.CurrentWord().Word)
	assert.Equal(t, "0/0", c.StatusLabel())
}

func TestController_StaleDefinitionIsDiscarded(t *testing.T) {
	t.Parallel()

	corpus := domain.Corpus{{Word: "ignored"}, {Word: "first"}, {Word: "second"}}
	lookup := newGatedLookup()
	c, _ := newTestController(t, ControllerConfig{
		Corpus: corpus,
		Lookup: lookup,
		Picker: &sequencePicker{first: 1, seq: []int{1, 2}},
	})

	finished := trackLookups(c)

	c.NextWord()
	c.NextWord()
	require.Equal(t, "second", c.CurrentWord().Word)

	lookup.release("second", domain.Definition{Meaning: "after the first"})
	waitLookup(t, finished, "second")
	require.NotNil(t, c.Snapshot().Definition)

	lookup.release("first", domain.Definition{Meaning: "coming before"})
	c.Wait()

	snap := c.Snapshot()
	require.NotNil(t, snap.Definition)
	assert.Equal(t, "after the first", snap.Definition.Meaning)
}

func TestController_StaleDefinitionBeforeFreshOne(t *testing.T) {
	t.Parallel()

	corpus := domain.Corpus{{Word: "ignored"}, {Word: "first"}, {Word: "second"}}
	lookup := newGatedLookup()
	c, _ := newTestController(t, ControllerConfig{
		Corpus: corpus,
		Lookup: lookup,
		Picker: &sequencePicker{first: 1, seq: []int{1, 2}},
	})

	finished := trackLookups(c)

	c.NextWord()
	c.NextWord()

	lookup.release("first", domain.Definition{Meaning: "coming before"})
	waitLookup(t, finished, "first")
	assert.Nil(t, c.Snapshot().Definition, "stale response must not populate the new word")

	lookup.release("second", domain.Definition{Meaning: "after the first"})
	c.Wait()
	require.NotNil(t, c.Snapshot().Definition)
	assert.Equal(t, "after the first", c.Snapshot().Definition.Meaning)
}

func TestController_PlayPronunciation(t *testing.T) {
	t.Parallel()

	corpus := domain.Corpus{{Word: "ignored"}, {Word: "Apple", AudioRef: "apple.mp3"}, {Word: "silent"}}
	c, player := newTestController(t, ControllerConfig{
		Corpus: corpus,
		Picker: &sequencePicker{first: 1, seq: []int{1, 2}},
	})
	defaults := DefaultAudioSettings()

	c.PlayPronunciation()
	c.Wait()
	c.NextWord()
	c.PlayPronunciation()
	c.Wait()
	c.NextWord()
	c.PlayPronunciation()
	c.Wait()

	plays := player.played()
	require.Len(t, plays, 3)
	assert.Equal(t, domain.Playback{Clip: defaults.DefaultClip, Rate: 0.8, Volume: 1}, plays[0], "no word yet")
	assert.Equal(t, domain.Playback{Clip: "apple.mp3", Rate: 0.8, Volume: 1}, plays[1])
	assert.Equal(t, domain.Playback{Clip: defaults.DefaultClip, Rate: 0.8, Volume: 1}, plays[2], "word without audio")
	assert.Equal(t, 0, c.Snapshot().Attempts, "playback does not touch counters")
}

func TestController_PlaybackFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(t, ControllerConfig{Player: failingPlayer{}})
	c.NextWord()
	c.PlayPronunciation()
	c.UpdateGuess("apple")
	outcome := c.SubmitGuess()
	c.Wait()

	assert.True(t, outcome.Correct)
	assert.Equal(t, 10, c.Snapshot().Score)
}

func TestController_CorpusValidation(t *testing.T) {
	t.Parallel()

	_, err := NewController(ControllerConfig{Corpus: domain.Corpus{{Word: "only"}}})
	require.ErrorIs(t, err, domain.ErrCorpusTooSmall)

	_, err = NewController(ControllerConfig{Corpus: nil, Picker: NewRandomPicker(false)})
	require.ErrorIs(t, err, domain.ErrCorpusTooSmall)

	_, err = NewController(ControllerConfig{Corpus: domain.Corpus{{Word: "a"}, {Word: ""}}})
	require.ErrorIs(t, err, domain.ErrInvalidWordEntry)

	c, err := NewController(ControllerConfig{Corpus: domain.Corpus{{Word: "only"}}, Picker: NewRandomPicker(false)})
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, domain.PhaseUninitialized, c.Snapshot().Phase)
	c.NextWord()
	assert.Equal(t, "only", c.CurrentWord().Word)
}

func TestController_SubmitBeforeFirstWord(t *testing.T) {
	t.Parallel()

	c, player := newTestController(t, ControllerConfig{})
	c.UpdateGuess("apple")
	outcome := c.SubmitGuess()
	c.Wait()

	assert.False(t, outcome.Submitted)
	assert.Equal(t, 0, c.Snapshot().Attempts)
	assert.Empty(t, player.played())
}

func TestController_OnChangeSnapshots(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var snaps []domain.Snapshot
	c, _ := newTestController(t, ControllerConfig{
		Lookup: &mapLookup{defs: map[string]domain.Definition{"Apple": {Meaning: "A fruit."}}},
		OnChange: func(s domain.Snapshot) {
			mu.Lock()
			snaps = append(snaps, s)
			mu.Unlock()
		},
	})

	c.NextWord()
	c.Wait()
	c.UpdateGuess("apple")
	c.SubmitGuess()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snaps, 4)
	assert.Nil(t, snaps[0].Definition)
	assert.Empty(t, snaps[0].Word)
	assert.Equal(t, "A fruit.", snaps[1].Definition.Meaning)
	assert.Equal(t, "apple", snaps[2].Guess)
	assert.Equal(t, "Apple", snaps[3].Word)
}

func TestController_ScoreInvariantsHoldUnderRandomOps(t *testing.T) {
	t.Parallel()

	corpus := domain.Corpus{{Word: "zero"}, {Word: "one"}, {Word: "two"}, {Word: "three"}}
	c, err := NewController(ControllerConfig{Corpus: corpus, Picker: NewRandomPicker(true)})
	require.NoError(t, err)
	defer c.Close()
	c.NextWord()

	rnd := rand.New(rand.NewSource(42))
	guesses := []string{"", " ", "one", "TWO", "three ", "zero", "four"}
	for i := 0; i < 500; i++ {
		switch rnd.Intn(5) {
		case 0:
			c.NextWord()
			snap := c.Snapshot()
			require.Equal(t, "", snap.Guess)
			require.False(t, snap.Revealed)
		case 1:
			c.Reset()
		default:
			c.UpdateGuess(guesses[rnd.Intn(len(guesses))])
			c.SubmitGuess()
		}
		snap := c.Snapshot()
		require.Zero(t, snap.Score%ScoreReward)
		require.LessOrEqual(t, snap.Score, snap.Attempts*ScoreReward)
		require.NotEqual(t, "zero", c.CurrentWord().Word, "index 0 is never drawn")
	}
}

func TestRandomPicker_Range(t *testing.T) {
	t.Parallel()

	for _, excludeFirst := range []bool{true, false} {
		p := NewRandomPicker(excludeFirst)
		seen := make(map[int]bool)
		for i := 0; i < 1000; i++ {
			idx := p.Pick(4)
			require.GreaterOrEqual(t, idx, p.FirstEligible())
			require.Less(t, idx, 4)
			seen[idx] = true
		}
		assert.Len(t, seen, 4-p.FirstEligible(), "every eligible index is drawn")
	}
}

type sequencePicker struct {
	first int
	seq   []int
	i     int
}

func (p *sequencePicker) FirstEligible() int { return p.first }

func (p *sequencePicker) Pick(int) int {
	idx := p.seq[p.i%len(p.seq)]
	p.i++
	return idx
}

type recordingPlayer struct {
	mu    sync.Mutex
	plays []domain.Playback
}

func (p *recordingPlayer) Play(_ context.Context, playback domain.Playback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays = append(p.plays, playback)
	return nil
}

func (p *recordingPlayer) played() []domain.Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Playback(nil), p.plays...)
}

type failingPlayer struct{}

func (failingPlayer) Play(context.Context, domain.Playback) error {
	return errors.New("no audio device")
}

type mapLookup struct {
	mu      sync.Mutex
	failing bool
	defs    map[string]domain.Definition
}

func (l *mapLookup) fail(v bool) {
	l.mu.Lock()
	l.failing = v
	l.mu.Unlock()
}

func (l *mapLookup) Lookup(_ context.Context, word string) (domain.Definition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	def, ok := l.defs[word]
	if l.failing || !ok {
		return domain.Definition{}, domain.ErrDefinitionNotFound
	}
	return def, nil
}

// gatedLookup holds each word's response until the test releases it.
type gatedLookup struct {
	mu    sync.Mutex
	gates map[string]chan domain.Definition
}

func newGatedLookup() *gatedLookup {
	return &gatedLookup{
		gates: make(map[string]chan domain.Definition),
	}
}

func (l *gatedLookup) gate(word string) chan domain.Definition {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.gates[word]; !ok {
		l.gates[word] = make(chan domain.Definition, 1)
	}
	return l.gates[word]
}

func (l *gatedLookup) Lookup(ctx context.Context, word string) (domain.Definition, error) {
	gate := l.gate(word)
	select {
	case def := <-gate:
		return def, nil
	case <-ctx.Done():
		return domain.Definition{}, ctx.Err()
	}
}

func (l *gatedLookup) release(word string, def domain.Definition) {
	l.gate(word) <- def
}

// trackLookups reports each word whose lookup has been merged or discarded.
func trackLookups(c *Controller) <-chan string {
	finished := make(chan string, 8)
	c.lookupDone = func(word string) { finished <- word }
	return finished
}

func waitLookup(t *testing.T, finished <-chan string, word string) {
	t.Helper()
	select {
	case got := <-finished:
		require.Equal(t, word, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("lookup for %q did not finish", word)
	}
}
