package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"contract-service/internal/models"
)

func TestRender(t *testing.T) {
	renderer := NewReminderEmailRenderer("https://app.example.com")

	noticeDays := 60
	contract := &models.Contract{
		ID:                    uuid.New(),
		Title:                 "Office lease",
		Counterparty:          "Acme Properties",
		EndDate:               day(2025, time.June, 30),
		TerminationNoticeDays: &noticeDays,
	}
	reminder := &models.Reminder{Notes: "Check the renewal terms"}

	subject, body, bodyHTML, err := renderer.Render(reminder, contract)
	if err != nil {
		t.Fatalf("Render returned %v", err)
	}

	if subject != "Reminder: Office lease (Acme Properties)" {
		t.Errorf("subject = %q", subject)
	}
	for _, want := range []string{"Office lease", "30 June 2025", "1 May 2025", "Check the renewal terms", contract.ID.String()} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if !strings.Contains(bodyHTML, "<strong>Office lease</strong>") {
		t.Errorf("html body missing title:\n%s", bodyHTML)
	}
}

func TestRender_NoDeadlineOmitsLine(t *testing.T) {
	renderer := NewReminderEmailRenderer("")
	contract := &models.Contract{
		Title:        "Support agreement",
		Counterparty: "Initech",
		EndDate:      day(2025, time.June, 30),
	}

	_, body, _, err := renderer.Render(&models.Reminder{}, contract)
	if err != nil {
		t.Fatalf("Render returned %v", err)
	}
	if strings.Contains(body, "termination") {
		t.Errorf("body mentions a deadline that does not exist:\n%s", body)
	}
	if strings.Contains(body, "View the contract") {
		t.Errorf("body has an action link without a base URL:\n%s", body)
	}
}

func TestActionURL(t *testing.T) {
	id := uuid.New()

	renderer := NewReminderEmailRenderer("https://app.example.com")
	want := "https://app.example.com/contracts/" + id.String()
	if got := renderer.ActionURL(id); got != want {
		t.Errorf("ActionURL = %q, want %q", got, want)
	}

	bare := NewReminderEmailRenderer("")
	if got := bare.ActionURL(id); got != "" {
		t.Errorf("ActionURL without base URL = %q, want empty", got)
	}
}
