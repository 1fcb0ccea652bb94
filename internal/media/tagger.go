package media

import (
	"fmt"

	"github.com/bogem/id3v2"

	"github.com/desertthunder/tamer/internal/models"
)

// Tagger writes ID3v2 frames into existing MP3 files.
type Tagger struct{}

func NewTagger() *Tagger {
	return &Tagger{}
}

// Tag sets the title (TIT2) and lead artist (TPE1) of the file at path, creating the tag if the file has none.
func (t *Tagger) Tag(path string, tags models.Tags) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open %s for tagging: %w", path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if tags.Title != "" {
		tag.SetTitle(tags.Title)
	}
	if tags.Artist != "" {
		tag.SetArtist(tags.Artist)
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags for %s: %w", path, err)
	}
	return nil
}

// ReadTags returns the title and artist stored in path.
func (t *Tagger) ReadTags(path string) (models.Tags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return models.Tags{}, err
	}
	defer tag.Close()
	return models.Tags{Title: tag.Title(), Artist: tag.Artist()}, nil
}
