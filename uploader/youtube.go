package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"text2shorts/batch"
	"text2shorts/config"
	"text2shorts/types"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// DefaultDescription is used when a proposal carries none.
const DefaultDescription = "This content is made by me, HiLo World. All right reserved. Contact me if you want to use my content."

// Metadata describes one upload
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	// PublishAt schedules a private video to go public. Zero means unscheduled.
	PublishAt time.Time
}

type Uploader struct {
	service *youtube.Service
}

// New authenticates with either a service account key or OAuth client
// secrets plus a previously saved token.
func New(ctx context.Context, credentialsFile, tokenFile string) (*Uploader, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	var kind struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(data, &kind)

	var opt option.ClientOption
	if kind.Type == "service_account" {
		jwt, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account: %w", err)
		}
		opt = option.WithHTTPClient(jwt.Client(ctx))
	} else {
		cfg, err := google.ConfigFromJSON(data, youtube.YoutubeUploadScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse client secrets: %w", err)
		}
		tok, err := loadToken(tokenFile)
		if err != nil {
			return nil, err
		}
		opt = option.WithTokenSource(cfg.TokenSource(ctx, tok))
	}

	service, err := youtube.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}
	return &Uploader{service: service}, nil
}

// NewWithService wraps an existing service client.
func NewWithService(service *youtube.Service) *Uploader {
	return &Uploader{service: service}
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read OAuth token %s (authorize once and save the token there): %w", path, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid OAuth token %s: %w", path, err)
	}
	return &tok, nil
}

// UploadVideo uploads the video as private and sets its thumbnail when
// thumbnailPath is non-empty. A thumbnail failure is logged only.
func (u *Uploader) UploadVideo(ctx context.Context, videoPath, thumbnailPath string, metadata Metadata) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat video file: %w", err)
	}

	log.Printf("📤 Uploading: %s (%.2f MB) %q", videoPath, float64(fileInfo.Size())/(1024*1024), metadata.Title)

	category := metadata.CategoryID
	if category == "" {
		category = config.YouTubeCategoryID
	}
	tags := metadata.Tags
	if tags == nil {
		tags = []string{}
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       metadata.Title,
			Description: metadata.Description,
			Tags:        tags,
			CategoryId:  category,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           config.YouTubePrivacyStatus,
			SelfDeclaredMadeForKids: false,
		},
	}
	if !metadata.PublishAt.IsZero() {
		video.Status.PublishAt = metadata.PublishAt.UTC().Format(time.RFC3339)
	}

	call := u.service.Videos.Insert([]string{"snippet", "status"}, video)
	call = call.Media(file).Context(ctx)

	response, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	videoID := response.Id
	log.Printf("✅ Uploaded! https://youtube.com/shorts/%s", videoID)

	if thumbnailPath != "" {
		if err := u.setThumbnail(ctx, videoID, thumbnailPath); err != nil {
			log.Printf("⚠️  Error setting thumbnail: %v", err)
		}
	}
	return videoID, nil
}

func (u *Uploader) setThumbnail(ctx context.Context, videoID, path string) error {
	thumb, err := os.Open(path)
	if err != nil {
		return err
	}
	defer thumb.Close()

	_, err = u.service.Thumbnails.Set(videoID).Media(thumb).Context(ctx).Do()
	if err != nil {
		return err
	}
	log.Printf("🖼️  Thumbnail set for %s", videoID)
	return nil
}

// GenerateMetadata builds upload metadata from a proposal.
func GenerateMetadata(proposal *types.Proposal) Metadata {
	title := proposal.Thumbnail.LongTitle
	if title == "" {
		title = proposal.Thumbnail.ShortTitle
	}
	if r := []rune(title); len(r) > config.MaxTitleLength {
		title = string(r[:config.MaxTitleLength-3]) + "..."
	}

	description := proposal.Description
	if description == "" {
		description = DefaultDescription
	}

	return Metadata{
		Title:       title,
		Description: description,
		Tags:        proposal.Tags,
		CategoryID:  config.YouTubeCategoryID,
	}
}

// UploadTopic uploads a freshly assembled topic without a publish date.
func (u *Uploader) UploadTopic(ctx context.Context, video, thumbnail string, proposal *types.Proposal) (string, error) {
	return u.UploadVideo(ctx, video, thumbnail, GenerateMetadata(proposal))
}

// Schedule returns n publish times starting at midnight UTC of start's date,
// perDay videos per day.
func Schedule(n int, start time.Time, perDay int) []time.Time {
	if perDay <= 0 {
		perDay = config.DefaultUploadsPerDay
	}
	start = start.UTC()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	out := make([]time.Time, n)
	for i := range out {
		out[i] = day.AddDate(0, 0, i/perDay)
	}
	return out
}

// ParseDate parses a YYYY-MM-DD publish date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid publish date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// ScheduleResult lists which topics were uploaded
type ScheduleResult struct {
	Succeeded []string
	Failed    []string
}

// UploadFromTopicFile uploads the finished video of every topic in the list,
// scheduling them perDay per day from start. A failed topic never stops the
// loop.
func (u *Uploader) UploadFromTopicFile(ctx context.Context, topicFile, outputsDir, proposalsDir string, start time.Time, perDay int) (ScheduleResult, error) {
	var result ScheduleResult
	topics, err := batch.LoadTopicList(topicFile)
	if err != nil {
		return result, err
	}

	listName := batch.ListName(topicFile)
	times := Schedule(len(topics), start, perDay)
	for i, topic := range topics {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		dir := batch.TopicDir(outputsDir, listName, topic.ID)
		err := u.uploadScheduled(ctx, topic.ID, dir, proposalsDir, times[i])
		if err != nil {
			log.Printf("❌ Failed to upload video for topic %s: %v", topic.ID, err)
			result.Failed = append(result.Failed, topic.ID)
			continue
		}
		result.Succeeded = append(result.Succeeded, topic.ID)
	}

	log.Printf("📊 Uploaded %d topics, %d failed", len(result.Succeeded), len(result.Failed))
	return result, nil
}

func (u *Uploader) uploadScheduled(ctx context.Context, topicID, dir, proposalsDir string, publishAt time.Time) error {
	proposal, err := types.LoadProposal(filepath.Join(proposalsDir, topicID+".json"))
	if err != nil {
		return err
	}
	metadata := GenerateMetadata(proposal)
	metadata.PublishAt = publishAt

	_, err = u.UploadVideo(ctx,
		types.FinalStage().Artifact(dir),
		types.ThumbnailStage().Artifact(dir),
		metadata)
	return err
}
