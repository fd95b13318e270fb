// Package audio holds the audio mix metadata and the music library
// client. Mixing is metadata only: the chosen track, its offset and the
// volume balance ride along in the edit envelope, no re-encode happens
// here.
package audio

import "github.com/reelworks/reeledit/pkg/schema"

// MixState describes the music overlay for one edit. Zero value means no
// track selected and the original audio untouched.
type MixState struct {
	TrackID            string
	Title              string
	StartOffsetSeconds float64
	TrackDuration      float64

	// MusicVolume and OriginalVolume are both in [0,1]. OriginalVolume
	// starts at 1 and is typically ducked when a track is set.
	MusicVolume    float64
	OriginalVolume float64
}

// NewMixState starts with no track and full original volume.
func NewMixState() *MixState {
	return &MixState{MusicVolume: 0.5, OriginalVolume: 1}
}

// SetTrack selects a track and resets the offset to the beginning.
func (m *MixState) SetTrack(t schema.Track) {
	m.TrackID = t.ID
	m.Title = t.Titulo
	m.TrackDuration = t.Duracion
	m.StartOffsetSeconds = 0
}

// ClearTrack removes the music overlay and restores the original volume.
func (m *MixState) ClearTrack() {
	m.TrackID = ""
	m.Title = ""
	m.TrackDuration = 0
	m.StartOffsetSeconds = 0
	m.OriginalVolume = 1
}

// HasTrack reports whether a music track is selected.
func (m *MixState) HasTrack() bool { return m.TrackID != "" }

// SetStartOffset clamps into [0, trackDuration].
func (m *MixState) SetStartOffset(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	if m.TrackDuration > 0 && seconds > m.TrackDuration {
		seconds = m.TrackDuration
	}
	m.StartOffsetSeconds = seconds
}

// SetMusicVolume clamps into [0,1].
func (m *MixState) SetMusicVolume(v float64) { m.MusicVolume = clamp01(v) }

// SetOriginalVolume clamps into [0,1].
func (m *MixState) SetOriginalVolume(v float64) { m.OriginalVolume = clamp01(v) }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
