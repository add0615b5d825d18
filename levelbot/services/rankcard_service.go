package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/levelforge/levelbot/levelbot/config"
)

// RankCardData feeds the rank card template.
type RankCardData struct {
	Username     string
	AvatarLetter string
	Level        int
	Rank         int64
	TotalXP      int64
	XPIntoLevel  int64
	XPNeeded     int64
	ProgressPct  int
	Coins        int64
	BoostLabel   string
	AccentColor  string
}

// RankCardService renders rank cards by screenshotting a headless-browser
// page built from an HTML template.
type RankCardService struct {
	logger *slog.Logger
	tmpl   *template.Template
}

func NewRankCardService() *RankCardService {
	s := &RankCardService{
		logger: slog.With(slog.String("service", "rank_card")),
		tmpl:   template.Must(template.New("rank_card").Parse(rankCardHTML)),
	}
	s.testChromedpAvailability()
	return s
}

func (s *RankCardService) testChromedpAvailability() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chromedpCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	if err := chromedp.Run(chromedpCtx, chromedp.Navigate("data:text/html,<html><body>test</body></html>")); err != nil {
		s.logger.Error("chromedp not available - rank card generation will fail",
			slog.String("error", err.Error()))
	}
}

// Generate renders a rank card PNG for the given data.
func (s *RankCardService) Generate(ctx context.Context, data RankCardData) ([]byte, error) {
	start := time.Now()

	if data.AvatarLetter == "" && data.Username != "" {
		data.AvatarLetter = strings.ToUpper(data.Username[:1])
	}
	if data.AccentColor == "" {
		data.AccentColor = "%235865F2"
	}
	if data.XPNeeded > 0 {
		data.ProgressPct = int(data.XPIntoLevel * 100 / data.XPNeeded)
	}

	htmlContent, err := s.renderHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to render rank card html: %w", err)
	}

	chromedpCtx, cancel := chromedp.NewContext(ctx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()

	chromedpCtx, cancel = context.WithTimeout(chromedpCtx, config.RankCardRenderTimeout)
	defer cancel()

	var imageBytes []byte
	err = chromedp.Run(chromedpCtx,
		chromedp.Navigate("data:text/html,"+htmlContent),
		chromedp.WaitVisible(config.RankCardWaitSelector, chromedp.ByID),
		chromedp.Sleep(200*time.Millisecond),
		chromedp.Screenshot(config.RankCardWaitSelector, &imageBytes, chromedp.ByID),
	)
	if err != nil {
		s.logger.Error("Failed to generate rank card",
			slog.String("username", data.Username),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("failed to generate rank card: %w", err)
	}

	s.logger.Info("Rank card generated",
		slog.String("username", data.Username),
		slog.Int("image_size", len(imageBytes)),
		slog.Duration("elapsed", time.Since(start)))
	return imageBytes, nil
}

func (s *RankCardService) renderHTML(data RankCardData) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	// data: URLs treat # as a fragment marker and newlines break navigation.
	htmlContent := strings.ReplaceAll(buf.String(), "#", "%23")
	htmlContent = strings.ReplaceAll(htmlContent, "\n", "")
	return htmlContent, nil
}

const rankCardHTML = `<!DOCTYPE html>
<html>
<head>
<style>
  body { margin: 0; font-family: 'Segoe UI', sans-serif; }
  #rank-card {
    width: 900px; height: 260px; display: flex; align-items: center;
    background: linear-gradient(135deg, #1e1f2b 0%, #2b2d42 100%);
    border-radius: 16px; padding: 24px; box-sizing: border-box; color: #fff;
  }
  .avatar {
    width: 140px; height: 140px; border-radius: 50%;
    background: {{.AccentColor}}; display: flex; align-items: center;
    justify-content: center; font-size: 64px; font-weight: 700;
  }
  .info { flex: 1; margin-left: 32px; }
  .name { font-size: 32px; font-weight: 600; }
  .stats { margin-top: 8px; font-size: 18px; color: #b9bbbe; }
  .bar-outer {
    margin-top: 20px; width: 100%; height: 28px;
    background: #40444b; border-radius: 14px; overflow: hidden;
  }
  .bar-inner {
    height: 100%; width: {{.ProgressPct}}%;
    background: {{.AccentColor}}; border-radius: 14px;
  }
  .bar-label { margin-top: 8px; font-size: 16px; color: #b9bbbe; }
  .badge {
    margin-left: 12px; padding: 2px 10px; border-radius: 10px;
    background: {{.AccentColor}}; font-size: 14px;
  }
</style>
</head>
<body>
<div id="rank-card">
  <div class="avatar">{{.AvatarLetter}}</div>
  <div class="info">
    <div class="name">{{.Username}}{{if .BoostLabel}}<span class="badge">{{.BoostLabel}}</span>{{end}}</div>
    <div class="stats">Rank #{{.Rank}} &middot; Level {{.Level}} &middot; {{.Coins}} coins</div>
    <div class="bar-outer"><div class="bar-inner"></div></div>
    <div class="bar-label">{{.XPIntoLevel}} / {{.XPNeeded}} XP ({{.TotalXP}} total)</div>
  </div>
</div>
</body>
</html>`
