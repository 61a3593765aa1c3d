package downloader

import (
	"strconv"
	"strings"

	"cryogon/rizumu-udio/models"
	"cryogon/rizumu-udio/utils"

	"github.com/bogem/id3v2"
)

// WriteTags writes the track metadata into the ID3v2 tag of the file at path.
func WriteTags(path string, t models.Track) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(t.Title)
	tag.SetArtist(t.Artist)
	if len(t.Tags) > 0 {
		tag.SetGenre(strings.Join(t.Tags, ", "))
	}
	if !t.PublishedAt.IsZero() {
		tag.SetYear(strconv.Itoa(t.PublishedAt.Year()))
	}
	if t.Lyrics != "" {
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          "eng",
			ContentDescriptor: t.Title,
			Lyrics:            t.Lyrics,
		})
	}
	tag.AddCommentFrame(id3v2.CommentFrame{
		Encoding:    id3v2.EncodingUTF8,
		Language:    "eng",
		Description: "source",
		Text:        utils.SongPageURL(t.ID),
	})

	return tag.Save()
}

// ReadTags returns title, artist and genre from the file's ID3v2 tag.
func ReadTags(path string) (title, artist, genre string, err error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return "", "", "", err
	}
	defer tag.Close()
	return tag.Title(), tag.Artist(), tag.Genre(), nil
}
