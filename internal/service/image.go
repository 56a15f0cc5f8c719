package service

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const defaultImageType = "image/png"

// EncodeImageRef renders raw image bytes as a data URI. The media type is
// sniffed from the bytes and falls back to PNG.
func EncodeImageRef(data []byte) string {
	return "data:" + imageContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func imageContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return defaultImageType
	}
	return ct
}

func generationStorageKey(userID int64, id string) string {
	return fmt.Sprintf("generations/%d/%s", userID, id)
}

func generationFileURL(id string) string {
	return "/api/image/generations/" + id + "/file"
}
