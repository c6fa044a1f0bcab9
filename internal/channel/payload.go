package channel

import (
	"fmt"
	"html"
	"strings"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// SlackPayload is the incoming-webhook message body.
type SlackPayload struct {
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a Slack message attachment.
type Attachment struct {
	Color     string  `json:"color,omitempty"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
	Timestamp int64   `json:"ts,omitempty"`
}

// Field is a field in a Slack attachment.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// BuildSlackPayload renders the message as a color-coded attachment.
func BuildSlackPayload(msg model.Message) SlackPayload {
	var text strings.Builder
	text.WriteString(msg.Text)
	if msg.Details != "" {
		text.WriteString("\n")
		text.WriteString(msg.Details)
	}

	return SlackPayload{
		Attachments: []Attachment{
			{
				Color: slackColor(msg.Severity),
				Title: msg.Title,
				Text:  text.String(),
				Fields: []Field{
					{Title: "Severity", Value: string(msg.Severity), Short: true},
				},
				Timestamp: msg.Timestamp.Unix(),
			},
		},
	}
}

func slackColor(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "danger"
	case model.SeverityWarning:
		return "warning"
	default:
		return "good"
	}
}

// BuildTelegramText renders the message as HTML with a severity emoji prefix.
func BuildTelegramText(msg model.Message) string {
	var sb strings.Builder
	sb.WriteString(severityEmoji(msg.Severity))
	sb.WriteString(" <b>")
	sb.WriteString(html.EscapeString(msg.Title))
	sb.WriteString("</b>\n")
	sb.WriteString(html.EscapeString(msg.Text))
	if msg.Details != "" {
		sb.WriteString("\n<i>")
		sb.WriteString(html.EscapeString(msg.Details))
		sb.WriteString("</i>")
	}
	return sb.String()
}

func severityEmoji(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "\U0001F6A8" // police light
	case model.SeverityWarning:
		return "⚠️" // warning sign
	default:
		return "ℹ️" // information
	}
}

// EmailPayload is the rendered email content.
type EmailPayload struct {
	Subject string
	Text    string
	HTML    string
}

// BuildEmailPayload renders the message with a severity-tagged subject and a
// color-coded HTML header.
func BuildEmailPayload(msg model.Message) EmailPayload {
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(msg.Severity)), msg.Title)

	var text strings.Builder
	text.WriteString(msg.Text)
	text.WriteString("\n\n")
	if msg.Details != "" {
		text.WriteString(msg.Details)
		text.WriteString("\n\n")
	}
	text.WriteString("Sent at ")
	text.WriteString(msg.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))

	var htmlBody strings.Builder
	htmlBody.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px;">`)
	htmlBody.WriteString(fmt.Sprintf(
		`<div style="background-color: %s; color: #ffffff; padding: 12px 16px; font-size: 18px; font-weight: bold;">%s</div>`,
		emailHeaderColor(msg.Severity), html.EscapeString(msg.Title)))
	htmlBody.WriteString(`<div style="padding: 16px; border: 1px solid #dddddd; border-top: none;">`)
	htmlBody.WriteString("<p>")
	htmlBody.WriteString(html.EscapeString(msg.Text))
	htmlBody.WriteString("</p>")
	if msg.Details != "" {
		htmlBody.WriteString(`<pre style="background-color: #f5f5f5; padding: 8px;">`)
		htmlBody.WriteString(html.EscapeString(msg.Details))
		htmlBody.WriteString("</pre>")
	}
	htmlBody.WriteString(fmt.Sprintf(
		`<p style="color: #888888; font-size: 12px;">Severity: %s &middot; %s</p>`,
		html.EscapeString(string(msg.Severity)),
		msg.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")))
	htmlBody.WriteString("</div></div>")

	return EmailPayload{
		Subject: subject,
		Text:    text.String(),
		HTML:    htmlBody.String(),
	}
}

func emailHeaderColor(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "#d9534f"
	case model.SeverityWarning:
		return "#f0ad4e"
	default:
		return "#5bc0de"
	}
}
