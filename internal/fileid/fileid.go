// Package fileid implements the operator helper bot that answers any media
// message with its Telegram file_id, ready to paste into the funnel config.
package fileid

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"
)

const startText = "🤖 <b>File ID bot</b>\n\n" +
	"Send any media (photo, video, voice, audio, document, GIF, sticker or video note) " +
	"and I will reply with its file_id."

const unknownText = "❌ Unsupported media type."

// Media describes the file carried by a message.
type Media struct {
	Kind    string
	FileID  string
	Details string
	// Method is the telebot type used to resend the file.
	Method string
}

// Describe extracts the media of msg. It reports false for messages without a file.
func Describe(msg *telebot.Message) (Media, bool) {
	if msg == nil {
		return Media{}, false
	}

	switch {
	case msg.Photo != nil:
		return Media{
			Kind:    "📷 Photo",
			FileID:  msg.Photo.FileID,
			Details: fmt.Sprintf("Resolution: %dx%d", msg.Photo.Width, msg.Photo.Height),
			Method:  "Photo",
		}, true
	case msg.Video != nil:
		return Media{
			Kind:    "🎥 Video",
			FileID:  msg.Video.FileID,
			Details: fmt.Sprintf("Duration: %ds | Resolution: %dx%d", msg.Video.Duration, msg.Video.Width, msg.Video.Height),
			Method:  "Video",
		}, true
	case msg.Voice != nil:
		return Media{
			Kind:    "🎤 Voice",
			FileID:  msg.Voice.FileID,
			Details: fmt.Sprintf("Duration: %ds", msg.Voice.Duration),
			Method:  "Voice",
		}, true
	case msg.Audio != nil:
		title := msg.Audio.Title
		if title == "" {
			title = "Untitled"
		}
		return Media{
			Kind:    "🎵 Audio",
			FileID:  msg.Audio.FileID,
			Details: fmt.Sprintf("Title: %s | Duration: %ds", title, msg.Audio.Duration),
			Method:  "Audio",
		}, true
	case msg.Animation != nil:
		// Telegram also fills Document for animations.
		return Media{
			Kind:    "🎬 GIF/Animation",
			FileID:  msg.Animation.FileID,
			Details: fmt.Sprintf("Resolution: %dx%d", msg.Animation.Width, msg.Animation.Height),
			Method:  "Animation",
		}, true
	case msg.Document != nil:
		name := msg.Document.FileName
		if name == "" {
			name = "Unnamed"
		}
		return Media{
			Kind:    "📄 Document",
			FileID:  msg.Document.FileID,
			Details: "Name: " + name,
			Method:  "Document",
		}, true
	case msg.Sticker != nil:
		return Media{
			Kind:    "🎭 Sticker",
			FileID:  msg.Sticker.FileID,
			Details: "Emoji: " + msg.Sticker.Emoji,
			Method:  "Sticker",
		}, true
	case msg.VideoNote != nil:
		return Media{
			Kind:    "🎥 Video note",
			FileID:  msg.VideoNote.FileID,
			Details: fmt.Sprintf("Duration: %ds", msg.VideoNote.Duration),
			Method:  "VideoNote",
		}, true
	}

	return Media{}, false
}

// Format renders the HTML reply for m.
func Format(m Media) string {
	var b strings.Builder

	fmt.Fprintf(&b, "✅ <b>%s detected!</b>\n\n", html.EscapeString(m.Kind))
	fmt.Fprintf(&b, "📋 <b>File ID:</b>\n<code>%s</code>\n\n", html.EscapeString(m.FileID))
	if m.Details != "" {
		fmt.Fprintf(&b, "ℹ️ <b>Details:</b>\n%s\n\n", html.EscapeString(m.Details))
	}

	b.WriteString("💡 <b>Usage:</b>\n<pre>")
	b.WriteString(html.EscapeString(fmt.Sprintf("bot.Send(chat, &telebot.%s{File: telebot.File{FileID: %q}})", m.Method, m.FileID)))
	b.WriteString("</pre>")
	if m.Method == "Photo" {
		b.WriteString("\n\nFunnel photos accept this id in <code>funnel.presentation.photo</code> and <code>funnel.remarketing.photo</code>.")
	}

	return b.String()
}

// Register installs the helper handlers on b.
func Register(b *telebot.Bot, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}

	b.Handle("/start", func(c telebot.Context) error {
		return c.Send(startText, telebot.ModeHTML)
	})

	media := mediaHandler(log)
	for _, endpoint := range []string{
		telebot.OnPhoto,
		telebot.OnVideo,
		telebot.OnVoice,
		telebot.OnAudio,
		telebot.OnDocument,
		telebot.OnAnimation,
		telebot.OnSticker,
		telebot.OnVideoNote,
	} {
		b.Handle(endpoint, media)
	}
}

func mediaHandler(log *slog.Logger) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		m, ok := Describe(c.Message())
		if !ok {
			return c.Reply(unknownText)
		}

		log.Info("file id captured", slog.String("kind", m.Method), slog.String("file_id", m.FileID))
		return c.Reply(Format(m), telebot.ModeHTML)
	}
}
