package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/utils"
)

// bindError reports a malformed request body.
func bindError(c *gin.Context, err error) {
	utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body: "+err.Error())
}

// savedMessage picks the success message of a catalog write. err is the
// outbox error returned alongside a value that was already applied locally.
func savedMessage(c *gin.Context, err error, message string) string {
	if err == nil {
		return message
	}
	log.Warn().Err(err).Str("request_id", c.GetString("request_id")).Msg("Change saved locally, store sync not queued")
	c.Header("X-Sync-Status", "delayed")
	return message + "; store sync is delayed"
}
