package http

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"
	"github.com/google/uuid"

	"github.com/docuchat/docuchat"
	"github.com/docuchat/docuchat/queue"
)

func AuthMiddleware(verifier docuchat.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if header == "" || !ok {
			c.String(http.StatusUnauthorized, "bearer token is required")
			c.Abort()
			return
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			c.String(http.StatusUnauthorized, "invalid token")
			c.Error(err)
			c.Abort()
			return
		}

		c.Set("user_id", userID)
	}
}

func UploadHandler(endpoint endpoint.Endpoint, uploadDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			c.String(http.StatusBadRequest, "no file uploaded")
			c.Error(err)
			c.Abort()
			return
		}

		collectionID := c.PostForm("id")
		if collectionID == "" {
			c.String(http.StatusBadRequest, "id is required")
			c.Abort()
			return
		}

		dst := filepath.Join(uploadDir, uuid.NewString()+"_"+filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, dst); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		job := queue.Job{
			Kind:         queue.SourceKindFile,
			SourceRef:    dst,
			OwnerID:      c.GetString("user_id"),
			CollectionID: collectionID,
			SubmittedAt:  time.Now(),
		}

		ctx := c.Request.Context()
		if _, err := endpoint(ctx, job); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, docuchat.ErrInvalidRequest) {
				status = http.StatusBadRequest
			}

			c.String(status, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "file uploaded successfully",
			"id":      collectionID,
		})
	}
}

type videoUploadRequest struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

func VideoUploadHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req videoUploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		if req.URL == "" || req.ID == "" {
			c.String(http.StatusBadRequest, "url and id are required")
			c.Abort()
			return
		}

		job := queue.Job{
			Kind:         queue.SourceKindURL,
			SourceRef:    req.URL,
			OwnerID:      c.GetString("user_id"),
			CollectionID: req.ID,
			SubmittedAt:  time.Now(),
		}

		ctx := c.Request.Context()
		if _, err := endpoint(ctx, job); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, docuchat.ErrInvalidRequest) {
				status = http.StatusBadRequest
			}

			c.String(status, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "video submitted successfully",
			"id":      req.ID,
		})
	}
}

func ChatHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req docuchat.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, docuchat.ErrInvalidRequest) {
				status = http.StatusBadRequest
			}

			c.String(status, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func IngestionStatusHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		collectionID := c.Param("id")
		if collectionID == "" {
			c.String(http.StatusBadRequest, "collection id is required")
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, collectionID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, docuchat.ErrJobNotFound) {
				status = http.StatusNotFound
			}

			c.String(status, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}
