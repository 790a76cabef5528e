package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuchat/docuchat"
)

func AddRouters(r *gin.Engine, endpoints docuchat.EndpointSet, verifier docuchat.TokenVerifier, uploadDir string) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "docuchat API")
	})

	auth := AuthMiddleware(verifier)

	r.POST("/upload", auth, UploadHandler(endpoints.SubmitIngestion, uploadDir))
	r.POST("/youtube-upload", auth, VideoUploadHandler(endpoints.SubmitIngestion))

	r.POST("/chat", ChatHandler(endpoints.Chat))
	r.POST("/youtube-chat", ChatHandler(endpoints.Chat))

	r.GET("/jobs/:id", IngestionStatusHandler(endpoints.IngestionStatus))
}
