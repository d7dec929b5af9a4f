package core

import (
	"errors"
	"time"
)

// Mood labels a journal day's emotional state. Scores put moods on a 1-10
// scale so they can be charted against performance.
type Mood string

const (
	MoodExcited  Mood = "excited"
	MoodHappy    Mood = "happy"
	MoodPeaceful Mood = "peaceful"
	MoodNeutral  Mood = "neutral"
	MoodAnxious  Mood = "anxious"
	MoodSad      Mood = "sad"
	MoodAngry    Mood = "angry"
)

var moodScores = map[Mood]int{
	MoodExcited:  10,
	MoodHappy:    9,
	MoodPeaceful: 8,
	MoodNeutral:  5,
	MoodAnxious:  3,
	MoodSad:      2,
	MoodAngry:    1,
}

// Score returns the 1-10 score for the mood, or 0 for an unknown mood.
func (m Mood) Score() int {
	return moodScores[m]
}

// Valid reports whether m is a known mood.
func (m Mood) Valid() bool {
	_, ok := moodScores[m]
	return ok
}

// MoodEntry records how the trader felt on a given day. Score is the
// numeric rendition of Mood so consumers can chart it without knowing
// the label scale.
type MoodEntry struct {
	ID        string
	Date      time.Time
	Mood      Mood
	Score     int
	Note      string
	Deleted   bool
	CreatedAt time.Time
}

// NewMoodEntry builds a mood entry with the score derived from the mood.
func NewMoodEntry(date time.Time, mood Mood, note string) MoodEntry {
	return MoodEntry{
		Date:  date,
		Mood:  mood,
		Score: mood.Score(),
		Note:  note,
	}
}

var ErrInvalidMood = errors.New("invalid mood")

func (e MoodEntry) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if !e.Mood.Valid() {
		return ErrInvalidMood
	}
	if len(e.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}
