package teams

import (
	"encoding/json"
	"testing"

	"visionbot/api/internal/bot"
)

func TestActivityTurn(t *testing.T) {
	raw := `{
		"type": "invoke",
		"id": "f:1",
		"serviceUrl": "https://smba.trafficmanager.net/emea/",
		"from": {"id": "29:user"},
		"recipient": {"id": "28:bot"},
		"conversation": {"id": "a:1", "isGroup": true},
		"replyToId": "card",
		"name": "fileConsent/invoke",
		"value": {"action": "decline", "context": {"resultId": "r"}}
	}`
	var act Activity
	if err := json.Unmarshal([]byte(raw), &act); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	turn := act.Turn()
	if turn.ConversationID != "a:1" || turn.RecipientID != "28:bot" || turn.ReplyToID != "card" {
		t.Fatalf("turn = %+v", turn)
	}
	if turn.Personal() {
		t.Fatalf("group conversation reported as personal")
	}
	if turn.Invoke == nil || turn.Invoke.Name != bot.InvokeFileConsent {
		t.Fatalf("invoke = %+v", turn.Invoke)
	}
	var resp bot.ConsentResponse
	if err := json.Unmarshal(turn.Invoke.Value, &resp); err != nil || resp.Action != "decline" || resp.ResultID() != "r" {
		t.Fatalf("consent response = %+v (%v)", resp, err)
	}
}

func TestActivitiesURL(t *testing.T) {
	got := activitiesURL("https://smba.example/emea/", "19:abc@thread.skype", "1234")
	want := "https://smba.example/emea/v3/conversations/19:abc@thread.skype/activities/1234"
	if got != want {
		t.Fatalf("activitiesURL = %q, want %q", got, want)
	}
	if got := activitiesURL("https://smba.example", "c", ""); got != "https://smba.example/v3/conversations/c/activities" {
		t.Fatalf("activitiesURL without reply id = %q", got)
	}
}
