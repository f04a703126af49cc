package cards

import "strings"

type GenerationType string

const (
	GenerationTextToImage  GenerationType = "text-to-image"
	GenerationImageToImage GenerationType = "image-to-image"
	GenerationTextToVideo  GenerationType = "text-to-video"
	GenerationImageToVideo GenerationType = "image-to-video"
)

// ParseGenerationType accepts the canonical names plus underscore spellings.
func ParseGenerationType(raw string) (GenerationType, bool) {
	t := GenerationType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-"))
	return t, t.Valid()
}

func (t GenerationType) Valid() bool {
	switch t {
	case GenerationTextToImage, GenerationImageToImage, GenerationTextToVideo, GenerationImageToVideo:
		return true
	default:
		return false
	}
}

// RequiresSeedImage reports whether inputMediaUrls[0] must be present.
func (t GenerationType) RequiresSeedImage() bool {
	return t == GenerationImageToImage || t == GenerationImageToVideo
}

func (t GenerationType) IsVideo() bool {
	return t == GenerationTextToVideo || t == GenerationImageToVideo
}

// Extension is the blob key suffix for payloads of this type.
func (t GenerationType) Extension() string {
	if t.IsVideo() {
		return "mp4"
	}
	return "png"
}

func (t GenerationType) ContentType() string {
	if t.IsVideo() {
		return "video/mp4"
	}
	return "image/png"
}
