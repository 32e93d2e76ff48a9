package fileid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	telebot "gopkg.in/telebot.v3"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name    string
		msg     *telebot.Message
		kind    string
		fileID  string
		details string
	}{
		{
			name:    "photo",
			msg:     &telebot.Message{Photo: &telebot.Photo{File: telebot.File{FileID: "ph"}, Width: 1280, Height: 720}},
			kind:    "Photo",
			fileID:  "ph",
			details: "Resolution: 1280x720",
		},
		{
			name:    "video",
			msg:     &telebot.Message{Video: &telebot.Video{File: telebot.File{FileID: "vd"}, Width: 640, Height: 480, Duration: 12}},
			kind:    "Video",
			fileID:  "vd",
			details: "Duration: 12s | Resolution: 640x480",
		},
		{
			name:    "voice",
			msg:     &telebot.Message{Voice: &telebot.Voice{File: telebot.File{FileID: "vc"}, Duration: 3}},
			kind:    "Voice",
			fileID:  "vc",
			details: "Duration: 3s",
		},
		{
			name:    "audio without title",
			msg:     &telebot.Message{Audio: &telebot.Audio{File: telebot.File{FileID: "au"}, Duration: 200}},
			kind:    "Audio",
			fileID:  "au",
			details: "Title: Untitled | Duration: 200s",
		},
		{
			name: "animation wins over document",
			msg: &telebot.Message{
				Animation: &telebot.Animation{File: telebot.File{FileID: "gif"}, Width: 320, Height: 240},
				Document:  &telebot.Document{File: telebot.File{FileID: "gif"}},
			},
			kind:    "Animation",
			fileID:  "gif",
			details: "Resolution: 320x240",
		},
		{
			name:    "document",
			msg:     &telebot.Message{Document: &telebot.Document{File: telebot.File{FileID: "doc"}, FileName: "price.pdf"}},
			kind:    "Document",
			fileID:  "doc",
			details: "Name: price.pdf",
		},
		{
			name:    "sticker",
			msg:     &telebot.Message{Sticker: &telebot.Sticker{File: telebot.File{FileID: "st"}, Emoji: "🔥"}},
			kind:    "Sticker",
			fileID:  "st",
			details: "Emoji: 🔥",
		},
		{
			name:    "video note",
			msg:     &telebot.Message{VideoNote: &telebot.VideoNote{File: telebot.File{FileID: "vn"}, Duration: 9}},
			kind:    "VideoNote",
			fileID:  "vn",
			details: "Duration: 9s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Describe(tt.msg)
			assert.True(t, ok)
			assert.Equal(t, tt.kind, m.Method)
			assert.Equal(t, tt.fileID, m.FileID)
			assert.Equal(t, tt.details, m.Details)
		})
	}
}

func TestDescribe_NoMedia(t *testing.T) {
	_, ok := Describe(&telebot.Message{Text: "hello"})
	assert.False(t, ok)

	_, ok = Describe(nil)
	assert.False(t, ok)
}

func TestFormat(t *testing.T) {
	out := Format(Media{Kind: "📷 Photo", FileID: "AgAC<x>", Details: "Resolution: 1x1", Method: "Photo"})

	assert.Contains(t, out, "<code>AgAC&lt;x&gt;</code>")
	assert.Contains(t, out, "Resolution: 1x1")
	assert.Contains(t, out, "telebot.Photo{File: telebot.File{FileID: &#34;AgAC&lt;x&gt;&#34;}}")
	assert.Contains(t, out, "funnel.presentation.photo")

	doc := Format(Media{Kind: "📄 Document", FileID: "d", Method: "Document"})
	assert.NotContains(t, doc, "funnel.presentation.photo")
	assert.NotContains(t, doc, "Details")
}
