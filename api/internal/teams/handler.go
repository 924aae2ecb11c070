package teams

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"visionbot/api/internal/bot"
	"visionbot/api/internal/credentials"
	"visionbot/api/internal/upload"
)

const (
	maxActivityBody = 1 << 20
	turnDeadline    = 120 * time.Second
)

// Endpoint receives activities for one bot on one route.
type Endpoint struct {
	Workflow    bot.Handler
	Credentials *credentials.Provider
	Connector   *Connector
	Uploads     *upload.Session
	Log         zerolog.Logger
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}
	var act Activity
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActivityBody)).Decode(&act); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad activity: " + err.Error()})
		return
	}

	log := e.Log.With().
		Str("turn_id", uuid.NewString()).
		Str("activity_type", act.Type).
		Str("conversation_id", act.conversationID()).
		Str("activity_id", act.ID).
		Logger()

	if act.Type != TypeMessage && act.Type != TypeInvoke {
		log.Debug().Msg("activity ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	cred, err := e.Credentials.Get(act.recipientID())
	if err != nil {
		if errors.Is(err, credentials.ErrUnknownBot) {
			log.Error().Err(err).Str("recipient_id", act.recipientID()).Msg("no credentials for bot")
		} else {
			log.Error().Err(err).Msg("credentials")
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestDeadline(r))
	defer cancel()
	ctx = log.WithContext(ctx)

	conv := &conversation{in: &act, cred: cred, conn: e.Connector, uploads: e.Uploads}
	st := e.Workflow.Handle(ctx, act.Turn(), conv)
	log.Info().Str("state", st.String()).Msg("turn handled")

	w.WriteHeader(http.StatusOK)
}

func requestDeadline(r *http.Request) time.Duration {
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return turnDeadline
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
