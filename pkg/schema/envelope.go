// pkg/schema/envelope.go
package schema

// EditMetadata is the structured, non-pixel record of the edits applied to a
// clip. It travels next to the exported blob so the publish endpoint can
// finish any work the engine did not bake into the output bytes (for video
// exports the re-encode is best effort).
//
// Fields are emitted only when the corresponding edit was actually made.
type EditMetadata struct {
	TrimStart       *float64 `json:"trimStart,omitempty"`
	TrimEnd         *float64 `json:"trimEnd,omitempty"`
	Filter          string   `json:"filter,omitempty"`
	FilterIntensity int      `json:"filterIntensity,omitempty"`
	AudioTrackID    string   `json:"audioTrackId,omitempty"`
	AudioTrackTitle string   `json:"audioTrackTitle,omitempty"`
	AudioStartTime  *float64 `json:"audioStartTime,omitempty"`
	AudioVolume     *float64 `json:"audioVolume,omitempty"`
	OriginalVolume  *float64 `json:"originalVolume,omitempty"`
	HasLayers       bool     `json:"hasLayers,omitempty"`
	HasDrawing      bool     `json:"hasDrawing,omitempty"`
}

// Empty reports whether no edit metadata would be emitted at all.
func (m *EditMetadata) Empty() bool {
	if m == nil {
		return true
	}
	return m.TrimStart == nil && m.TrimEnd == nil && m.Filter == "" &&
		m.AudioTrackID == "" && !m.HasLayers && !m.HasDrawing
}

// PublishResponse is the JSON body the publish collaborator answers with.
type PublishResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// Track is one entry of the music-library collaborator's catalog. Field
// names follow that service's wire format.
type Track struct {
	ID                 string  `json:"id"`
	Titulo             string  `json:"titulo"`
	Artista            string  `json:"artista"`
	RutaArchivo        string  `json:"rutaArchivo"`
	RutaPortada        string  `json:"rutaPortada,omitempty"`
	Duracion           float64 `json:"duracion"`
	DuracionFormateada string  `json:"duracionFormateada,omitempty"`
}
