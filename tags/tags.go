// Package tags writes resolved song metadata into MP3 files as ID3v2.3
// frames.
package tags

import (
	"fmt"
	"strconv"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"

	"github.com/lfavole/songs-dl/lyrics"
	"github.com/lfavole/songs-dl/song"
)

// Cover is an image to embed as the front cover.
type Cover struct {
	Data []byte
	MIME string
}

// Write replaces path's ID3 tag with s's metadata. Cover and lyrics are
// optional; synced lyrics are embedded in LRC form so players that parse
// timestamps out of USLT can use them.
func Write(path string, s *song.Song, cover *Cover, l lyrics.Lyrics) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return fmt.Errorf("open tag: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(3)
	tag.SetDefaultEncoding(id3v2.EncodingUTF16)

	setText := func(id, text string) {
		if text != "" {
			tag.AddTextFrame(id, tag.DefaultEncoding(), text)
		}
	}

	setText("TIT2", s.Title)
	setText("TPE1", s.Artist())
	setText("TALB", s.Album)
	setText("TCOM", strings.Join(s.Composers, ", "))
	setText("TCON", s.Genre)
	setText("TCOP", s.Copyright)
	setText("TSRC", s.ISRC)
	setText("TLAN", langCode(s.Language))

	if s.Duration > 0 {
		setText("TLEN", strconv.FormatInt(s.Duration.Milliseconds(), 10))
	}
	if !s.ReleaseDate.IsZero() {
		setText("TYER", s.ReleaseDate.Format("2006"))
		setText("TDAT", s.ReleaseDate.Format("0201"))
	}
	if s.TrackNumber > 0 {
		track := strconv.Itoa(s.TrackNumber)
		if s.TrackTotal > 0 {
			track += "/" + strconv.Itoa(s.TrackTotal)
		}
		setText("TRCK", track)
	}

	if text := lyricsText(l); text != "" {
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          usltLang(s.Language),
			ContentDescriptor: "Lyrics",
			Lyrics:            text,
		})
	}

	if cover != nil && len(cover.Data) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingISO,
			MimeType:    cover.MIME,
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     cover.Data,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tag: %w", err)
	}
	return nil
}

func lyricsText(l lyrics.Lyrics) string {
	if lrc := l.LRC(); lrc != "" {
		return lrc
	}
	return l.Plain
}

// iso639_2 maps the two-letter codes providers report to the three-letter
// codes ID3 frames want.
var iso639_2 = map[string]string{
	"en": "eng", "fr": "fra", "es": "spa", "de": "deu", "it": "ita",
	"pt": "por", "nl": "nld", "ja": "jpn", "ko": "kor", "zh": "zho",
	"ru": "rus", "sv": "swe", "pl": "pol", "tr": "tur", "ar": "ara",
}

func langCode(lang string) string {
	lang = strings.ToLower(lang)
	if code, ok := iso639_2[lang]; ok {
		return code
	}
	if len(lang) == 3 {
		return lang
	}
	return ""
}

// usltLang always returns a valid three-character code since the USLT
// frame's language field is mandatory.
func usltLang(lang string) string {
	if code := langCode(lang); code != "" {
		return code
	}
	return "eng"
}
