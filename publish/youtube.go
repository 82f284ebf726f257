package publish

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"slidestudio/config"
)

// YouTubePublisher uploads videos with a service account.
type YouTubePublisher struct {
	service *youtube.Service
	privacy string
}

// NewYouTubePublisher authenticates with the service account JSON file.
func NewYouTubePublisher(ctx context.Context, serviceAccountFile, privacy string) (*YouTubePublisher, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}
	return NewYouTubePublisherWithService(service, privacy), nil
}

// NewYouTubePublisherWithService wraps an existing service client.
func NewYouTubePublisherWithService(service *youtube.Service, privacy string) *YouTubePublisher {
	if privacy == "" {
		privacy = config.YouTubePrivacyStatus
	}
	return &YouTubePublisher{service: service, privacy: privacy}
}

// Name implements Publisher.
func (u *YouTubePublisher) Name() string { return "youtube" }

// Publish implements Publisher.
func (u *YouTubePublisher) Publish(ctx context.Context, runID, videoPath string, meta Metadata) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat video file: %w", err)
	}
	log.Printf("📤 [publish] uploading run %s to YouTube (%.2f MB)", runID, float64(info.Size())/(1024*1024))

	v := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           u.privacy,
			SelfDeclaredMadeForKids: false,
		},
	}

	resp, err := u.service.Videos.Insert([]string{"snippet", "status"}, v).Media(file).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	url := "https://www.youtube.com/watch?v=" + resp.Id
	log.Printf("✅ [publish] uploaded %s", url)
	return url, nil
}
