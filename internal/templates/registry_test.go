package templates_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/templates"
)

func newRegistry(t *testing.T) *templates.Registry {
	t.Helper()
	r, err := templates.Default()
	require.NoError(t, err)
	return r
}

func meetingReadyData() domain.Payload {
	return domain.Payload{
		"userName":     "Ada",
		"meetingTitle": "Q3 Planning",
		"meetingUrl":   "https://app.example.com/m/42",
	}
}

func TestDefault_CoversEveryKnownType(t *testing.T) {
	r := newRegistry(t)
	assert.NoError(t, r.Validate(domain.KnownTypes))
}

func TestValidate_ReportsMissingHandlers(t *testing.T) {
	r := templates.NewRegistry()
	require.NoError(t, r.RegisterEmail(domain.TypeMeetingReady, "s", "<p>{{.userName}}</p>", "{{.userName}}"))

	err := r.Validate([]domain.Type{domain.TypeMeetingReady})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sms formatter")
	assert.Contains(t, err.Error(), "no payload schema")
	assert.NotContains(t, err.Error(), "no email template")
}

func TestRenderEmail_MeetingReady(t *testing.T) {
	r := newRegistry(t)

	html, text, err := r.RenderEmail(domain.TypeMeetingReady, meetingReadyData())
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>Q3 Planning</strong>")
	assert.Contains(t, html, `href="https://app.example.com/m/42"`)
	assert.Contains(t, text, "Hi Ada,")
	assert.Equal(t, "Your meeting notes are ready", r.Subject(domain.TypeMeetingReady))
}

func TestRenderEmail_EscapesHTML(t *testing.T) {
	r := newRegistry(t)
	data := meetingReadyData()
	data["meetingTitle"] = "<script>alert(1)</script>"

	html, text, err := r.RenderEmail(domain.TypeMeetingReady, data)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, text, "<script>")
}

func TestRenderEmail_UnknownType(t *testing.T) {
	r := newRegistry(t)

	_, _, err := r.RenderEmail("somethingNew", domain.Payload{})
	assert.True(t, errors.Is(err, domain.ErrTemplateNotFound))
	assert.Equal(t, templates.DefaultSubject, r.Subject("somethingNew"))
}

func TestRenderEmail_MissingField(t *testing.T) {
	r := newRegistry(t)
	data := meetingReadyData()
	delete(data, "meetingUrl")

	_, _, err := r.RenderEmail(domain.TypeMeetingReady, data)
	assert.True(t, errors.Is(err, domain.ErrRender))
}

func TestSMS(t *testing.T) {
	r := newRegistry(t)

	msg := r.SMS(domain.TypeMeetingReady, meetingReadyData())
	assert.Equal(t, `Your notes for "Q3 Planning" are ready: https://app.example.com/m/42`, msg)

	digest := r.SMS(domain.TypeWeeklyDigest, domain.Payload{
		"userName": "Ada", "meetingCount": float64(7), "actionItemCount": float64(3), "digestUrl": "u",
	})
	assert.True(t, strings.HasPrefix(digest, "Your week: 7 meetings, 3 open action items."))

	assert.Equal(t, templates.DefaultSMS, r.SMS("somethingNew", domain.Payload{"x": 1}))
}

func TestValidatePayload(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		name    string
		typ     domain.Type
		data    domain.Payload
		wantErr bool
	}{
		{"complete", domain.TypeMeetingReady, meetingReadyData(), false},
		{"missing field", domain.TypeMeetingReady, domain.Payload{"userName": "Ada"}, true},
		{"nil payload", domain.TypeTranscriptReady, nil, true},
		{"wrong field type", domain.TypeActionItemDue, domain.Payload{"actionItem": "x", "dueDate": []any{1}}, true},
		{"numbers accepted", domain.TypeWeeklyDigest, domain.Payload{
			"userName": "Ada", "meetingCount": 2, "actionItemCount": 0, "digestUrl": "u",
		}, false},
		{"unknown type skips schema", "somethingNew", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidatePayload(tt.typ, tt.data)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}
