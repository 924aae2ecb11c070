package bot

import (
	"errors"
	"fmt"

	"visionbot/api/internal/vision"
)

const (
	msgInstructions      = "Hi! Send me a picture or a link to one, and I'll tell you what it is."
	msgGroupInstructions = msgInstructions + " In channels and group chats, please paste the picture directly into the compose box: Teams won't let me receive file attachments yet!"

	msgCaption    = "I think that's %s."
	msgNoCaption  = `¯\_(ツ)_/¯`
	msgAnalyzeErr = "There was a problem analyzing the image: %s"

	msgFoundText = "I found %s text in that image."
	msgNoText    = "I didn't find any text in that picture."
	msgDeclined  = "Ok! If you change your mind, just send me the picture again."
	msgExpired   = "That result has expired. Send me the picture again, and I'll rescan it."
	msgUploadErr = "There was an error uploading the file: %s"

	consentDescription = "Text recognized from the image"
	defaultResultName  = "result.txt"
)

// instructions returns the usage text. Group conversations get a hint that
// file attachments do not reach the bot there.
func instructions(t Turn, groupHint bool) string {
	if groupHint && !t.Personal() {
		return msgGroupInstructions
	}
	return msgInstructions
}

// diagnostic renders a recognition failure for the user. Service errors carry
// their own message; anything else gets a generic one.
func diagnostic(err error) string {
	if apiErr, ok := vision.AsAPIError(err); ok {
		return fmt.Sprintf(msgAnalyzeErr, apiErr.Error())
	}
	if errors.Is(err, vision.ErrMalformedResponse) {
		return fmt.Sprintf(msgAnalyzeErr, "the vision service returned an unexpected response.")
	}
	return fmt.Sprintf(msgAnalyzeErr, "the image could not be retrieved or the vision service is unreachable.")
}
