package cards

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerationTypeClassification(t *testing.T) {
	for _, raw := range []string{"text-to-image", "IMAGE_TO_IMAGE", " text-to-video ", "image-to-video"} {
		if _, ok := ParseGenerationType(raw); !ok {
			t.Fatalf("ParseGenerationType(%q): want ok", raw)
		}
	}
	if _, ok := ParseGenerationType("audio"); ok {
		t.Fatalf("ParseGenerationType(audio): want !ok")
	}
	if !GenerationImageToImage.RequiresSeedImage() || !GenerationImageToVideo.RequiresSeedImage() {
		t.Fatalf("seeded types must require a seed image")
	}
	if GenerationTextToImage.RequiresSeedImage() || GenerationTextToVideo.RequiresSeedImage() {
		t.Fatalf("text types must not require a seed image")
	}
	if GenerationTextToVideo.Extension() != "mp4" || GenerationImageToImage.Extension() != "png" {
		t.Fatalf("extension mismatch")
	}
}

func TestComparisonState(t *testing.T) {
	oldID, newID := uuid.New(), uuid.New()
	c := &Comparison{OldMediaID: &oldID, NewMediaID: newID}
	if c.State() != ComparisonUnresolved || c.Resolved() {
		t.Fatalf("new comparison: want unresolved got=%s", c.State())
	}
	if got := c.ChosenMediaID(true); got == nil || *got != newID {
		t.Fatalf("ChosenMediaID(true): want=%s got=%v", newID, got)
	}
	if got := c.ChosenMediaID(false); got == nil || *got != oldID {
		t.Fatalf("ChosenMediaID(false): want=%s got=%v", oldID, got)
	}
	sel := false
	c.IsSelectedNew = &sel
	if c.State() != ComparisonResolvedOld {
		t.Fatalf("State: want=%s got=%s", ComparisonResolvedOld, c.State())
	}

	noOld := &Comparison{NewMediaID: newID}
	if got := noOld.ChosenMediaID(false); got != nil {
		t.Fatalf("ChosenMediaID without old media: want nil got=%v", got)
	}
}
