package templates

import (
	"fmt"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

type builtin struct {
	typ      domain.Type
	subject  string
	html     string
	text     string
	sms      SMSFormatter
	required []string
}

var builtins = []builtin{
	{
		typ:     domain.TypeMeetingReady,
		subject: "Your meeting notes are ready",
		html: `<p>Hi {{.userName}},</p>
<p>The notes, summary and action items for <strong>{{.meetingTitle}}</strong> are ready.</p>
<p><a href="{{.meetingUrl}}">Open the meeting</a></p>`,
		text: "Hi {{.userName}},\n\nThe notes, summary and action items for {{.meetingTitle}} are ready.\n\n{{.meetingUrl}}\n",
		sms: func(p domain.Payload) string {
			return fmt.Sprintf("Your notes for \"%s\" are ready: %s", p.String("meetingTitle"), p.String("meetingUrl"))
		},
		required: []string{"userName", "meetingTitle", "meetingUrl"},
	},
	{
		typ:     domain.TypeMeetingReminder,
		subject: "Upcoming meeting reminder",
		html: `<p><strong>{{.meetingTitle}}</strong> starts in {{.startsIn}}.</p>
<p><a href="{{.meetingUrl}}">Join the meeting</a></p>`,
		text: "{{.meetingTitle}} starts in {{.startsIn}}.\n\n{{.meetingUrl}}\n",
		sms: func(p domain.Payload) string {
			return fmt.Sprintf("Reminder: \"%s\" starts in %s. %s", p.String("meetingTitle"), p.String("startsIn"), p.String("meetingUrl"))
		},
		required: []string{"meetingTitle", "startsIn", "meetingUrl"},
	},
	{
		typ:     domain.TypeActionItemAssigned,
		subject: "New action item assigned to you",
		html: `<p>Hi {{.userName}},</p>
<p>You were assigned <strong>{{.actionItem}}</strong> in {{.meetingTitle}}.</p>`,
		text: "Hi {{.userName}},\n\nYou were assigned \"{{.actionItem}}\" in {{.meetingTitle}}.\n",
		sms: func(p domain.Payload) string {
			return fmt.Sprintf("New action item from \"%s\": %s", p.String("meetingTitle"), p.String("actionItem"))
		},
		required: []string{"userName", "actionItem", "meetingTitle"},
	},
	{
		typ:     domain.TypeActionItemDue,
		subject: "Action item due soon",
		html:    `<p>Your action item <strong>{{.actionItem}}</strong> is due {{.dueDate}}.</p>`,
		text:    "Your action item \"{{.actionItem}}\" is due {{.dueDate}}.\n",
		sms: func(p domain.Payload) string {
			return fmt.Sprintf("Due %s: %s", p.String("dueDate"), p.String("actionItem"))
		},
		required: []string{"actionItem", "dueDate"},
	},
	{
		typ:     domain.TypeTranscriptReady,
		subject: "Your transcript is ready",
		html: `<p>The transcript for <strong>{{.meetingTitle}}</strong> is ready.</p>
<p><a href="{{.transcriptUrl}}">Read the transcript</a></p>`,
		text: "The transcript for {{.meetingTitle}} is ready.\n\n{{.transcriptUrl}}\n",
		sms: func(p domain.Payload) string {
			return fmt.Sprintf("Transcript ready for \"%s\": %s", p.String("meetingTitle"), p.String("transcriptUrl"))
		},
		required: []string{"meetingTitle", "transcriptUrl"},
	},
	{
		typ:     domain.TypeWeeklyDigest,
		subject: "Your weekly meeting digest",
		html: `<p>Hi {{.userName}},</p>
<p>This week you had {{.meetingCount}} meetings and {{.actionItemCount}} open action items.</p>
<p><a href="{{.digestUrl}}">See your digest</a></p>`,
		text: "Hi {{.userName}},\n\nThis week you had {{.meetingCount}} meetings and {{.actionItemCount}} open action items.\n\n{{.digestUrl}}\n",
		sms: func(p domain.Payload) string {
			return fmt.Sprintf("Your week: %s meetings, %s open action items. %s",
				p.String("meetingCount"), p.String("actionItemCount"), p.String("digestUrl"))
		},
		required: []string{"userName", "meetingCount", "actionItemCount", "digestUrl"},
	},
}

// Default returns the built-in registry, already checked against
// domain.KnownTypes.
func Default() (*Registry, error) {
	r := NewRegistry()
	for _, b := range builtins {
		if err := r.RegisterEmail(b.typ, b.subject, b.html, b.text); err != nil {
			return nil, err
		}
		r.RegisterSMS(b.typ, b.sms)
		if err := r.RegisterSchema(b.typ, b.required...); err != nil {
			return nil, err
		}
	}
	if err := r.Validate(domain.KnownTypes); err != nil {
		return nil, fmt.Errorf("template registry incomplete: %w", err)
	}
	return r, nil
}
