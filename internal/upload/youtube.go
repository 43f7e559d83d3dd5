package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/kikiluvv/threadshorts/internal/config"
	"github.com/kikiluvv/threadshorts/pkg/util"
)

// ErrNotAuthorized means no stored YouTube token exists yet. The token is
// obtained outside threadshorts.
var ErrNotAuthorized = errors.New("no usable youtube token, store an authorized oauth2 token in upload.youtube.token_file")

const maxTitleLength = 100

// YouTube uploads shorts to the authorized channel
type YouTube struct {
	logger  zerolog.Logger
	service *youtube.Service
	cfg     config.YouTubeConfig
}

func NewYouTube(ctx context.Context, logger zerolog.Logger, cfg config.YouTubeConfig) (*YouTube, error) {
	oauthCfg, err := oauthConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	ts := &savingTokenSource{
		src:  oauthCfg.TokenSource(ctx, tok),
		path: cfg.TokenFile,
		last: tok.AccessToken,
	}
	service, err := youtube.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &YouTube{logger: logger, service: service, cfg: cfg}, nil
}

func (y *YouTube) Upload(ctx context.Context, video, title string) (Result, error) {
	file, err := os.Open(video)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open video file: %w", err)
	}
	defer file.Close()

	privacy := y.cfg.Privacy
	if privacy == "" {
		privacy = "private"
	}

	v := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       truncate(title, maxTitleLength),
			Description: title + "\n\n#shorts",
			Tags:        y.cfg.Tags,
			CategoryId:  y.cfg.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: privacy,
		},
	}

	call := y.service.Videos.Insert([]string{"snippet", "status"}, v)
	call = call.Media(file)
	call = call.Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	location := "https://www.youtube.com/shorts/" + resp.Id
	y.logger.Info().Str("video_id", resp.Id).Str("privacy", privacy).Msg("uploaded short")
	return Result{Backend: "youtube", Location: location}, nil
}

func oauthConfig(credentialsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read youtube credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("parse youtube credentials: %w", err)
	}
	return cfg, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, fmt.Errorf("read youtube token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse youtube token: %w", err)
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return nil, ErrNotAuthorized
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(path, data, 0600)
}

// savingTokenSource persists refreshed tokens
type savingTokenSource struct {
	src  oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
