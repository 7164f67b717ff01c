// Package netx holds small HTTP helpers for working with presigned object
// storage URLs.
package netx

import (
	"fmt"
	"io"
	"net/http"
)

// DownloadFromPresignedURL fetches an archived artifact through a presigned
// GET URL and returns its bytes.
func DownloadFromPresignedURL(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}
	return io.ReadAll(resp.Body)
}
