package funnel

import (
	"time"

	"github.com/Proton-105/funnel-bot/pkg/config"
)

// Kind names an outbound message of the funnel.
type Kind string

const (
	KindPresentation Kind = "presentation"
	KindRetention    Kind = "retention"
	KindTerminal     Kind = "terminal"
	KindAck          Kind = "ack"
)

// Markup tells the transport how actions should be rendered.
type Markup string

const (
	// MarkupCheckout actions open an external checkout, inside the Web App surface when available.
	MarkupCheckout Markup = "checkout"
	// MarkupLink actions are plain URL buttons.
	MarkupLink Markup = "link"
)

// Action is a selectable button attached to a message.
type Action struct {
	Label string
	URL   string
	// Code identifies the offer behind a checkout action.
	Code string
}

// Message is a transport independent outbound message. Photo, when set, is
// sent before Text.
type Message struct {
	Kind    Kind
	Photo   string
	Text    string
	Actions []Action
	Markup  Markup
}

// Offer is one purchasable package.
type Offer struct {
	Code  string
	Label string
	URL   string
}

// Presentation is shown on /start.
type Presentation struct {
	Photo  string
	Text   string
	Offers []Offer
}

// Remarketing configures the one-shot retention nudge. Enabled=false
// disables scheduling entirely.
type Remarketing struct {
	Enabled    bool
	Delay      time.Duration
	Photo      string
	Text       string
	ButtonText string
	URL        string
}

// Completion holds the texts sent once a checkout is reported.
type Completion struct {
	Text       string
	ButtonText string
	ButtonURL  string
	// AckText answers unrecognized statuses. Empty means silence.
	AckText string
}

// Content is everything the funnel says to a user.
type Content struct {
	Presentation Presentation
	Remarketing  Remarketing
	Completion   Completion
}

// ContentFromConfig maps the funnel section of the configuration.
func ContentFromConfig(cfg config.FunnelConfig) Content {
	offers := make([]Offer, 0, len(cfg.Offers))
	for _, o := range cfg.Offers {
		offers = append(offers, Offer{Code: o.Code, Label: o.Label, URL: o.URL})
	}

	return Content{
		Presentation: Presentation{
			Photo:  cfg.Presentation.Photo,
			Text:   cfg.Presentation.Text,
			Offers: offers,
		},
		Remarketing: Remarketing{
			Enabled:    cfg.Remarketing.Enabled,
			Delay:      cfg.Remarketing.Delay,
			Photo:      cfg.Remarketing.Photo,
			Text:       cfg.Remarketing.Text,
			ButtonText: cfg.Remarketing.ButtonText,
			URL:        cfg.Remarketing.URL,
		},
		Completion: Completion{
			Text:       cfg.Completion.Text,
			ButtonText: cfg.Completion.ButtonText,
			ButtonURL:  cfg.Completion.ButtonURL,
			AckText:    cfg.Completion.AckText,
		},
	}
}

func (c Content) presentationMessage() Message {
	actions := make([]Action, 0, len(c.Presentation.Offers))
	for _, offer := range c.Presentation.Offers {
		actions = append(actions, Action{Label: offer.Label, URL: offer.URL, Code: offer.Code})
	}

	return Message{
		Kind:    KindPresentation,
		Photo:   c.Presentation.Photo,
		Text:    c.Presentation.Text,
		Actions: actions,
		Markup:  MarkupCheckout,
	}
}

func (c Content) retentionMessage() Message {
	return Message{
		Kind:  KindRetention,
		Photo: c.Remarketing.Photo,
		Text:  c.Remarketing.Text,
		Actions: []Action{{
			Label: c.Remarketing.ButtonText,
			URL:   c.Remarketing.URL,
		}},
		Markup: MarkupCheckout,
	}
}

func (c Content) terminalMessage() Message {
	msg := Message{
		Kind:   KindTerminal,
		Text:   c.Completion.Text,
		Markup: MarkupLink,
	}
	if c.Completion.ButtonURL != "" {
		msg.Actions = []Action{{Label: c.Completion.ButtonText, URL: c.Completion.ButtonURL}}
	}
	return msg
}

func (c Content) ackMessage() (Message, bool) {
	if c.Completion.AckText == "" {
		return Message{}, false
	}
	return Message{Kind: KindAck, Text: c.Completion.AckText, Markup: MarkupLink}, true
}
