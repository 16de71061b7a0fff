package bot

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram echoes the secret registered with setWebhook in this header.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// webhookRouter serves the update push endpoint. A push with a wrong or
// missing secret is rejected before any handler sees it.
func (a *App) webhookRouter() *gin.Engine {
	if !a.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/tg/webhooks", a.requireSecretToken(), func(c *gin.Context) {
		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}

		a.dispatch(update)
		c.Status(http.StatusOK)
	})

	return router
}

func (a *App) requireSecretToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := a.cfg.Telegram.WebhookSecretToken
		if secret != "" && c.GetHeader(secretTokenHeader) != secret {
			a.log.Warn().Str("ip", c.ClientIP()).Msg("Webhook push with bad secret token")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
