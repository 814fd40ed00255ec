package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/githubpalak/gas-utility-portal/internal/events"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

func TestCustomerInternalCommentIsDowngraded(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest(t, f.customer1)

	comment, err := f.discussion.AddComment(f.ctx, f.customer1, req.ID, "is anyone coming?", true)
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if comment.IsInternal {
		t.Fatalf("customer comment must not be internal")
	}

	note, err := f.discussion.AddComment(f.ctx, f.agent, req.ID, "crew dispatched, meter looks tampered", true)
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if !note.IsInternal {
		t.Fatalf("staff note should stay internal")
	}

	visible, err := f.discussion.ListComments(f.ctx, f.customer1, req.ID)
	if err != nil {
		t.Fatalf("list as customer: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != comment.ID {
		t.Fatalf("customer should only see the public comment: %+v", visible)
	}
	all, err := f.discussion.ListComments(f.ctx, f.agent, req.ID)
	if err != nil {
		t.Fatalf("list as agent: %v", err)
	}
	if len(all) != 2 || all[0].ID != comment.ID {
		t.Fatalf("agent should see both comments oldest first: %+v", all)
	}
}

func TestAddCommentValidationAndScope(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest(t, f.customer1)

	_, err := f.discussion.AddComment(f.ctx, f.customer1, req.ID, "   ", false)
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.discussion.AddComment(f.ctx, f.customer2, req.ID, "hello", false)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.discussion.ListComments(f.ctx, f.customer2, req.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestAttachmentRoundTrip(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest(t, f.customer1)

	_, err := f.discussion.AddAttachment(f.ctx, f.customer1, req.ID, nil)
	assertCode(t, err, apperrors.CodeValidation)

	attachment, err := f.discussion.AddAttachment(f.ctx, f.customer1, req.ID, &AttachmentUpload{
		FileName: "../meter photo.png",
		Body:     strings.NewReader("reading 01234"),
	})
	if err != nil {
		t.Fatalf("add attachment: %v", err)
	}
	if attachment.FileName != "meter photo.png" || attachment.SizeBytes != int64(len("reading 01234")) {
		t.Fatalf("unexpected metadata: %+v", attachment)
	}
	if attachment.ContentType != "image/png" {
		t.Fatalf("content type = %q", attachment.ContentType)
	}

	list, err := f.discussion.ListAttachments(f.ctx, f.agent, req.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list attachments: %+v %v", list, err)
	}

	meta, body, err := f.discussion.OpenAttachment(f.ctx, f.agent, req.ID, attachment.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "reading 01234" || meta.ID != attachment.ID {
		t.Fatalf("unexpected content %q", data)
	}

	_, _, err = f.discussion.OpenAttachment(f.ctx, f.customer2, req.ID, attachment.ID)
	assertCode(t, err, apperrors.CodeNotFound)

	other := f.newRequest(t, f.customer1)
	_, _, err = f.discussion.OpenAttachment(f.ctx, f.customer1, other.ID, attachment.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestAttachmentTooLarge(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest(t, f.customer1)

	_, err := f.discussion.AddAttachment(f.ctx, f.customer1, req.ID, &AttachmentUpload{
		FileName: "big.bin",
		Body:     strings.NewReader(strings.Repeat("x", 4096)),
	})
	assertCode(t, err, apperrors.CodeValidation)

	list, _ := f.discussion.ListAttachments(f.ctx, f.customer1, req.ID)
	if len(list) != 0 {
		t.Fatalf("oversized upload should not be recorded")
	}
}

func TestStringPreviewKeepsRunesWhole(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  short  ", 10, "short"},
		{"Fuga de gas en la cañería", 10, "Fuga de..."},
		{"ñññññññññ", 6, "ñññ..."},
		{"🔥🔥🔥🔥", 3, "🔥🔥🔥"},
		{"🔥🔥🔥🔥", 4, "🔥🔥🔥🔥"},
	}
	for _, tc := range cases {
		got := stringPreview(tc.in, tc.max)
		if got != tc.want {
			t.Fatalf("stringPreview(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("stringPreview(%q, %d) produced invalid UTF-8", tc.in, tc.max)
		}
	}
}

func TestCommentAddedPreviewOnMultibyteText(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest(t, f.customer1)

	var preview string
	f.dispatcher.Subscribe(events.EventCommentAdded, func(_ context.Context, event events.Event) error {
		preview = event.Payload.(events.CommentAddedPayload).BodyPreview
		return nil
	})

	if _, err := f.discussion.AddComment(f.ctx, f.customer1, req.ID, strings.Repeat("é", 200), false); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if !utf8.ValidString(preview) {
		t.Fatalf("preview is not valid UTF-8: %q", preview)
	}
	if want := strings.Repeat("é", 117) + "..."; preview != want {
		t.Fatalf("unexpected preview %q", preview)
	}
}
