package page

import (
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
)

// FallbackMimeType is used when neither the download, the element nor the
// URL say what the audio is.
const FallbackMimeType = "audio/ogg"

// AudioElement is an audio player found in a document.
type AudioElement interface {
	// Src is the element's own source attribute, resolved to an absolute URL.
	Src() string
	// CurrentSrc is the source the player selected, if the host knows it.
	CurrentSrc() string
	// SourceSrc is the source of the element's first <source> child.
	SourceSrc() string
	// Type is the media type declared on the element.
	Type() string
}

// ResolveSource picks the URL an audio element plays from: its own src,
// then currentSrc, then its first source child.
func ResolveSource(audio AudioElement) string {
	if audio == nil {
		return ""
	}
	for _, src := range []string{audio.Src(), audio.CurrentSrc(), audio.SourceSrc()} {
		if src != "" {
			return src
		}
	}
	return ""
}

// SelectLast returns the last element in document order that has a source,
// or nil.
func SelectLast(audios []AudioElement) AudioElement {
	for i := len(audios) - 1; i >= 0; i-- {
		if ResolveSource(audios[i]) != "" {
			return audios[i]
		}
	}
	return nil
}

var mimeTypesByExtension = map[string]string{
	"mp3": "audio/mpeg",
	"ogg": "audio/ogg",
	"oga": "audio/ogg",
	"wav": "audio/wav",
	"m4a": "audio/mp4",
	"mp4": "audio/mp4",
}

// InferMimeType guesses a media type from the extension of rawURL's path.
// It returns "" when the extension is unknown or the URL cannot be parsed.
func InferMimeType(log *zap.Logger, rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		log.With(zap.String("url", rawURL), zap.Error(err)).Warn("unable to infer mime type from url")
		return ""
	}

	extension := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))
	return mimeTypesByExtension[extension]
}

// ResolveMimeType applies the precedence download type, element type, URL
// extension, then FallbackMimeType.
func ResolveMimeType(log *zap.Logger, blobType, elementType, sourceURL string) string {
	for _, mimeType := range []string{blobType, elementType, InferMimeType(log, sourceURL)} {
		if mimeType != "" {
			return mimeType
		}
	}
	return FallbackMimeType
}
