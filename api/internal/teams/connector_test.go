package teams

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"visionbot/api/internal/credentials"
	"visionbot/api/internal/util"
)

func TestFetchRejectsOversizedContent(t *testing.T) {
	big := bytes.Repeat([]byte("x"), maxContent+1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(big)
	}))
	defer server.Close()

	cred := credentials.NewCredential(credentials.App{})
	_, err := NewConnector(server.Client()).Fetch(context.Background(), cred, server.URL+"/attachments/big")
	if !errors.Is(err, util.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
