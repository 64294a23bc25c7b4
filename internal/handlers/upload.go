package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxImageSize = 10 << 20

// UploadPropertyImage accepts a multipart "image" file. isFeatured=true makes
// it the listing's only featured image.
func UploadPropertyImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageSize+1<<20)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		badRequest(c, "No image file provided")
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		badRequest(c, "Image must be 10MB or smaller")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		badRequest(c, "Only image files are allowed")
		return
	}
	featured, _ := strconv.ParseBool(c.PostForm("isFeatured"))

	img, err := session(c).Properties.UploadPropertyImage(c.Request.Context(), c.Param("id"), file, header.Filename, contentType, featured)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"image": img})
}

func DeletePropertyImage(c *gin.Context) {
	if err := session(c).Properties.DeletePropertyImage(c.Request.Context(), c.Param("id"), c.Param("imageId")); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Image deleted"})
}
