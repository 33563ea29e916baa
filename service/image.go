package service

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"Filmmaker-server/config"
	"Filmmaker-server/models"
)

// FrameImager builds a reference image URL for each storyboard frame and
// mirrors the rendered image into MinIO when object storage is
// configured. Image failures never fail the storyboard stage.
type FrameImager struct {
	endpoint string
	client   *http.Client
}

func NewFrameImager() *FrameImager {
	endpoint := config.AppConfig.AI.ImageAPI
	if endpoint == "" {
		endpoint = "https://image.pollinations.ai"
	}
	return &FrameImager{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// BuildImageURL 根据画面描述构造文生图 URL
func (f *FrameImager) BuildImageURL(description string) string {
	prompt := "cinematic storyboard frame, " + description
	return fmt.Sprintf("%s/prompt/%s?width=1024&height=576&nologo=true", f.endpoint, url.PathEscape(prompt))
}

// AttachImages fills in ImageURL for every frame, preferring a MinIO
// mirror of the rendered image over the raw generation URL.
func (f *FrameImager) AttachImages(ctx context.Context, projectID string, frames models.FrameList) {
	for i := range frames {
		sourceURL := f.BuildImageURL(frames[i].Description)
		frames[i].ImageURL = sourceURL

		if MinioClient == nil {
			continue
		}
		objectName := fmt.Sprintf("projects/%s/frames/%d.jpg", projectID, frames[i].FrameNumber)
		mirrored, err := f.mirrorToMinIO(ctx, sourceURL, objectName)
		if err != nil {
			log.Printf("[FrameImager] mirror frame %d failed (keeping source url): %v", frames[i].FrameNumber, err)
			continue
		}
		frames[i].ImageURL = mirrored
	}
}

func (f *FrameImager) mirrorToMinIO(ctx context.Context, sourceURL, objectName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("create download request failed: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download status: %d", resp.StatusCode)
	}

	return UploadToMinIO(resp.Body, objectName, resp.ContentLength)
}
