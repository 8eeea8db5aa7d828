package domain

// WordEntry is one candidate spelling word with its pronunciation clip.
type WordEntry struct {
	Word     string `json:"word"`
	AudioRef string `json:"audio"`
}

// IsZero reports whether no word has been drawn yet.
func (w WordEntry) IsZero() bool {
	return w.Word == ""
}

// Corpus is the ordered, read-only list of words a session draws from.
type Corpus []WordEntry

// Definition is the dictionary metadata resolved for a word.
type Definition struct {
	Meaning      string `json:"meaning"`
	PartOfSpeech string `json:"partOfSpeech"`
	Phonetic     string `json:"phonetic"`
}

// Playback asks the audio collaborator to play a clip.
type Playback struct {
	Clip   string  `json:"clip"`
	Rate   float64 `json:"rate"`
	Volume float64 `json:"volume"`
}

// Phase is the controller's position in the quiz state machine.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseAwaitingGuess Phase = "awaiting_guess"
	PhaseRevealed      Phase = "revealed"
)

// Snapshot is the read-only view of a session handed to clients.
// Word is only populated once the answer has been revealed.
type Snapshot struct {
	Phase      Phase       `json:"phase"`
	Score      int         `json:"score"`
	Attempts   int         `json:"attempts"`
	Status     string      `json:"status"`
	Guess      string      `json:"guess"`
	Revealed   bool        `json:"revealed"`
	Correct    bool        `json:"correct"`
	Word       string      `json:"word,omitempty"`
	HasAudio   bool        `json:"hasAudio"`
	Definition *Definition `json:"definition,omitempty"`
}

// Outcome summarizes a submit. Submitted is false when the guess was blank.
type Outcome struct {
	Submitted bool `json:"submitted"`
	Correct   bool `json:"correct"`
	Score     int  `json:"score"`
	Attempts  int  `json:"attempts"`
}

// EventKind distinguishes what a session pushes to its subscribers.
type EventKind string

const (
	EventState EventKind = "state"
	EventSound EventKind = "sound"
)

// Event is a session update delivered to subscribers.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Playback Playback
}
